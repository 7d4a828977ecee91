package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/promptgen"
	"github.com/kayz/promptflow/internal/taskdef"
)

var (
	validateIdea    string
	validateInputs  []string
	validateStages  []string
	validateVerbose bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <task>",
	Short: "Synthesize a task's prompt and validate it without executing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		task, err := loadTask(cfg, args[0])
		if err != nil {
			return err
		}

		userInputs, err := parseKeyValues(validateInputs)
		if err != nil {
			return err
		}
		stageOutputs, err := parseKeyValues(validateStages)
		if err != nil {
			return err
		}

		knowledge := map[string]string{}
		if cfg.Tasks.KnowledgeDir != "" {
			kb := taskdef.NewKnowledgeBase(cfg.Tasks.KnowledgeDir)
			knowledge = kb.GetAll(task.KnowledgeFocus)
		}

		sctx := promptgen.AssembleContext(promptgen.ContextInput{
			TaskName:        task.Name,
			TaskDescription: task.Description,
			OutputFormat:    task.OutputFormat,
			AgentID:         task.AgentID,
			BusinessIdea:    validateIdea,
			UserInputs:      userInputs,
			StageOutputs:    stageOutputs,
			Knowledge:       knowledge,
		})

		prompt := promptgen.Generate(promptgen.TemplatePair{
			System: task.SystemTemplate,
			User:   task.UserTemplate,
		}, sctx, promptgen.OptimizeOptions{
			TokenOptimization:   cfg.Optimizer.TokenOptimization,
			ClarityEnhancement:  cfg.Optimizer.ClarityEnhancement,
			ContextCompression:  cfg.Optimizer.ContextCompression,
			QualityInstructions: cfg.Optimizer.QualityInstructions,
		})

		report := promptgen.Validate(prompt.System, prompt.User, promptgen.ValidationRules{
			MaxSystemTokens:   cfg.Limits.MaxSystemTokens,
			MaxUserTokens:     cfg.Limits.MaxUserTokens,
			MaxCombinedTokens: cfg.Limits.MaxCombinedTokens,
			RequiredElements:  task.PromptRequirements,
			QualityChecks:     task.PromptQualityChecks,
		})

		fmt.Printf("task:               %s (agent %s)\n", task.Name, task.AgentID)
		fmt.Printf("system tokens:      %d / %d\n", prompt.Metadata.SystemTokens, cfg.Limits.MaxSystemTokens)
		fmt.Printf("user tokens:        %d / %d\n", prompt.Metadata.UserTokens, cfg.Limits.MaxUserTokens)
		fmt.Printf("combined tokens:    %d / %d\n", prompt.Metadata.TotalTokens, cfg.Limits.MaxCombinedTokens)
		fmt.Printf("construction score: %.2f\n", prompt.Metadata.ConstructionScore)
		if len(prompt.Metadata.OptimizationPasses) > 0 {
			fmt.Printf("optimization:       %v\n", prompt.Metadata.OptimizationPasses)
		}

		if report.OK {
			fmt.Println("validation:         ok")
		} else {
			fmt.Println("validation:         failed")
			for _, v := range report.Violations {
				fmt.Printf("  - %s\n", v)
			}
		}

		if validateVerbose {
			fmt.Println("\n--- system prompt ---")
			fmt.Println(prompt.System)
			fmt.Println("\n--- user prompt ---")
			fmt.Println(prompt.User)
		}

		if !report.OK {
			return fmt.Errorf("prompt validation failed with %d violation(s)", len(report.Violations))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateIdea, "idea", "", "Business idea fed into the prompt context")
	validateCmd.Flags().StringArrayVar(&validateInputs, "input", nil, "User input as key=value (repeatable)")
	validateCmd.Flags().StringArrayVar(&validateStages, "stage", nil, "Prior stage output as stage=text (repeatable)")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Print the generated prompts")
	rootCmd.AddCommand(validateCmd)
}
