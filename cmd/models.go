package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models from the model registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := ai.LoadRegistry()
		if err != nil {
			return err
		}
		models := reg.ListModels()
		if len(models) == 0 {
			fmt.Println("No models configured.")
			return nil
		}

		defaultModel := reg.GetDefaultModel()
		fmt.Println("Configured models:")
		for _, m := range models {
			marker := " "
			if defaultModel != nil && m.Name == defaultModel.Name {
				marker = "*"
			}
			fmt.Printf("  %s %-20s %-30s provider=%s\n", marker, m.Name, m.Code, m.Provider)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
