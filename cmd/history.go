package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/persist"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <agent-id>",
	Short: "Show recent execution records for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is not configured")
		}

		store, err := persist.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.ListRecent(args[0], historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Println("No execution records.")
			return nil
		}
		for _, rec := range records {
			status := "ok"
			if rec.Degraded {
				status = "degraded"
			}
			fmt.Printf("%s  %-24s score=%.2f tokens=%-6d %6dms  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
				rec.TaskName, rec.QualityScore, rec.TokensUsed,
				rec.ProcessingTimeMs, status)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(historyCmd)
}
