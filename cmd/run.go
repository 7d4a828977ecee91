package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/executor"
	"github.com/kayz/promptflow/internal/logger"
	"github.com/kayz/promptflow/internal/pipeline"
)

var (
	runIdea    string
	runInputs  []string
	runStages  []string
	runStream  bool
	runChannel string
	runModel   string
	runJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task end-to-end: synthesize, validate, execute, score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(runModel, runStream)
		if err != nil {
			return err
		}
		defer a.Close()

		task, err := loadTask(a.cfg, args[0])
		if err != nil {
			return err
		}

		userInputs, err := parseKeyValues(runInputs)
		if err != nil {
			return err
		}
		stageOutputs, err := parseKeyValues(runStages)
		if err != nil {
			return err
		}

		req := pipeline.RunRequest{
			Task:         task,
			BusinessIdea: runIdea,
			UserInputs:   userInputs,
			StageOutputs: stageOutputs,
			Stream:       runStream,
			ChannelID:    runChannel,
		}

		result, err := a.runWithFailover(cmd.Context(), req)
		if err != nil {
			return err
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(result)
		return nil
	},
}

// runWithFailover executes the pipeline, retrying once on a fresh model when
// the registry router has an alternative and the failure was transport-level.
func (a *app) runWithFailover(ctx context.Context, req pipeline.RunRequest) (executor.Result, error) {
	result, err := a.pipeline.Run(ctx, req)
	if err == nil {
		if a.router != nil {
			a.router.RecordSuccess(a.router.GetCurrentModel())
		}
		return result, nil
	}

	var verr *pipeline.ValidationError
	var rerr *executor.RateLimitError
	if a.router == nil || errors.As(err, &verr) || errors.As(err, &rerr) {
		return executor.Result{}, err
	}

	failed := a.router.GetCurrentModel()
	a.router.RecordFailure(failed)
	next, ferr := a.router.Failover()
	if ferr != nil {
		return executor.Result{}, err
	}
	logger.Warn("Model %s failed (%v), failing over to %s", failed.Name, err, next.Name)
	if berr := a.useRegistryModel(next); berr != nil {
		return executor.Result{}, err
	}
	return a.pipeline.Run(ctx, req)
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printResult(result executor.Result) {
	fmt.Println(result.Content)
	fmt.Println()
	fmt.Printf("quality score:   %.2f\n", result.QualityScore)
	fmt.Printf("tokens used:     %d\n", result.TokensUsed)
	fmt.Printf("processing time: %dms\n", result.ProcessingTimeMs)
	if len(result.KnowledgeSourcesUsed) > 0 {
		fmt.Printf("knowledge used:  %s\n", strings.Join(result.KnowledgeSourcesUsed, ", "))
	}
	if len(result.QualityGatesPassed) > 0 {
		fmt.Printf("gates passed:    %s\n", strings.Join(result.QualityGatesPassed, ", "))
	}
	if result.Degraded() {
		fmt.Printf("degraded:        %s\n", result.Metadata.Error)
	}
}

func init() {
	runCmd.Flags().StringVar(&runIdea, "idea", "", "Business idea fed into the prompt context")
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "User input as key=value (repeatable)")
	runCmd.Flags().StringArrayVar(&runStages, "stage", nil, "Prior stage output as stage=text (repeatable)")
	runCmd.Flags().BoolVar(&runStream, "stream", false, "Stream the completion incrementally")
	runCmd.Flags().StringVar(&runChannel, "channel", "", "Relay channel to forward streamed fragments to")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the configured model")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(runCmd)
}
