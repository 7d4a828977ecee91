package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/executor"
	"github.com/kayz/promptflow/internal/logger"
	"github.com/kayz/promptflow/internal/persist"
	"github.com/kayz/promptflow/internal/promptgen"
	"github.com/kayz/promptflow/internal/quality"
	"github.com/kayz/promptflow/internal/taskdef"
)

// ValidationError is returned in strict mode when the generated prompt
// fails validation. In the default advisory mode violations are only logged.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("prompt validation failed: %s", strings.Join(e.Violations, "; "))
}

// RunRequest is one end-to-end pipeline invocation.
type RunRequest struct {
	Task *taskdef.Task

	BusinessIdea string
	UserInputs   map[string]string
	// StageOutputs carries prior-stage outputs keyed by stage identity.
	StageOutputs map[string]string

	// Stream selects incremental execution; ChannelID additionally forwards
	// fragments to the relay.
	Stream    bool
	ChannelID string
}

// Pipeline runs context assembly, template expansion, optimization,
// validation, execution and output scoring in fixed order and returns the
// execution result. It holds no per-invocation state.
type Pipeline struct {
	cfg        *config.Config
	controller *executor.Controller
	knowledge  *taskdef.KnowledgeBase
	auditor    *Auditor
	store      *persist.Store
}

// New assembles a Pipeline. knowledge, auditor and store may be nil.
func New(cfg *config.Config, controller *executor.Controller, knowledge *taskdef.KnowledgeBase, auditor *Auditor, store *persist.Store) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		controller: controller,
		knowledge:  knowledge,
		auditor:    auditor,
		store:      store,
	}
}

// Run executes one task end-to-end. Provider API failures come back as a
// degraded result, not an error; rate limiting and transport failures are
// returned as errors.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (executor.Result, error) {
	task := req.Task
	if task == nil {
		return executor.Result{}, fmt.Errorf("task is required")
	}

	knowledge := map[string]string{}
	if p.knowledge != nil {
		knowledge = p.knowledge.GetAll(task.KnowledgeFocus)
	}

	sctx := promptgen.AssembleContext(promptgen.ContextInput{
		TaskName:        task.Name,
		TaskDescription: task.Description,
		OutputFormat:    task.OutputFormat,
		AgentID:         task.AgentID,
		BusinessIdea:    req.BusinessIdea,
		UserInputs:      req.UserInputs,
		StageOutputs:    req.StageOutputs,
		Knowledge:       knowledge,
	})

	prompt := promptgen.Generate(promptgen.TemplatePair{
		System: task.SystemTemplate,
		User:   task.UserTemplate,
	}, sctx, promptgen.OptimizeOptions{
		TokenOptimization:   p.cfg.Optimizer.TokenOptimization,
		ClarityEnhancement:  p.cfg.Optimizer.ClarityEnhancement,
		ContextCompression:  p.cfg.Optimizer.ContextCompression,
		QualityInstructions: p.cfg.Optimizer.QualityInstructions,
	})

	report := promptgen.Validate(prompt.System, prompt.User, promptgen.ValidationRules{
		MaxSystemTokens:   p.cfg.Limits.MaxSystemTokens,
		MaxUserTokens:     p.cfg.Limits.MaxUserTokens,
		MaxCombinedTokens: p.cfg.Limits.MaxCombinedTokens,
		RequiredElements:  task.PromptRequirements,
		QualityChecks:     task.PromptQualityChecks,
	})
	if !report.OK {
		for _, v := range report.Violations {
			logger.Warn("Prompt validation: %s", v)
		}
		if p.cfg.Validation.Strict {
			return executor.Result{}, &ValidationError{Violations: report.Violations}
		}
	}

	if p.auditor != nil {
		if err := p.auditor.Write(task, prompt, report.Violations); err != nil {
			logger.Warn("Prompt audit write failed: %v", err)
		}
	}

	result, err := p.controller.Execute(ctx, executor.Request{
		AgentID:   task.AgentID,
		Prompt:    prompt,
		Stream:    req.Stream,
		ChannelID: req.ChannelID,
	}, executor.Options{})
	if err != nil {
		return executor.Result{}, err
	}

	if !result.Degraded() {
		p.scoreResult(&result, task, knowledge)
	}

	if p.store != nil {
		rec := &persist.ExecutionRecord{
			AgentID:          task.AgentID,
			TaskName:         task.Name,
			Content:          result.Content,
			QualityScore:     result.QualityScore,
			TokensUsed:       result.TokensUsed,
			ProcessingTimeMs: result.ProcessingTimeMs,
			RequestID:        result.Metadata.RequestID,
			Degraded:         result.Degraded(),
			KnowledgeSources: result.KnowledgeSourcesUsed,
			QualityGates:     result.QualityGatesPassed,
		}
		if err := p.store.Save(rec); err != nil {
			logger.Warn("Execution history write failed: %v", err)
		}
	}

	return result, nil
}

func (p *Pipeline) scoreResult(result *executor.Result, task *taskdef.Task, knowledge map[string]string) {
	criteria := &quality.TaskCriteria{
		RequiredElements: task.RequiredElements,
		Deliverables:     task.Deliverables,
		QualityGates:     task.QualityGates,
	}
	result.QualityScore = quality.Score(result.Content, criteria)

	focuses := make([]string, 0, len(knowledge))
	for focus := range knowledge {
		focuses = append(focuses, focus)
	}
	sort.Strings(focuses)
	sources := make([]quality.KnowledgeSource, 0, len(focuses))
	for _, focus := range focuses {
		sources = append(sources, quality.KnowledgeSource{Name: focus, Content: knowledge[focus]})
	}
	result.KnowledgeSourcesUsed = quality.AttributeKnowledge(result.Content, sources)
	result.QualityGatesPassed = quality.EvaluateGates(result.Content, task.QualityGates)
}
