package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/executor"
	"github.com/kayz/promptflow/internal/persist"
	"github.com/kayz/promptflow/internal/taskdef"
)

type scriptedProvider struct {
	content  string
	err      error
	requests []executor.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req executor.CompletionRequest) (executor.CompletionResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return executor.CompletionResponse{}, p.err
	}
	return executor.CompletionResponse{
		Content:   p.content,
		RequestID: "req-test",
	}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req executor.CompletionRequest, onFragment func(string)) (executor.StopInfo, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return executor.StopInfo{}, p.err
	}
	onFragment(p.content)
	return executor.StopInfo{RequestID: "req-test"}, nil
}

func testTask() *taskdef.Task {
	return &taskdef.Task{
		Name:           "market-analysis",
		AgentID:        "analyst",
		Description:    "Analyze the target market.",
		SystemTemplate: "You are a market analyst working on {task_name}.\n\n{inject:knowledge_summary}",
		UserTemplate:   "Analyze this idea: {business_idea}\n\nFormat: {output_format}",
		OutputFormat:   "markdown report",
		RequiredElements: []string{"market size", "competitors"},
		Deliverables:     []string{"analysis"},
		QualityGates:     []string{"comprehensive market analysis"},
		KnowledgeFocus:   []string{"market_research"},
	}
}

func testPipeline(t *testing.T, provider executor.Provider, cfg *config.Config) (*Pipeline, *persist.Store) {
	t.Helper()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	limiter := executor.NewRateLimiter(time.Minute, 50)
	controller := executor.NewController(provider, limiter, nil, executor.Options{Model: "test-model"})

	knowledgeDir := t.TempDir()
	body := "# Market Research\n\nSegmentation and competitor mapping fundamentals."
	if err := os.WriteFile(filepath.Join(knowledgeDir, "market_research.md"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	kb := taskdef.NewKnowledgeBase(knowledgeDir)

	store, err := persist.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	auditor := NewAuditor(config.AuditConfig{
		Enabled:       true,
		Dir:           t.TempDir(),
		FilePrefix:    "test",
		RetentionDays: 7,
	})

	return New(cfg, controller, kb, auditor, store), store
}

func analysisOutput() string {
	var b strings.Builder
	b.WriteString("# Market Analysis\n\n")
	b.WriteString("## Market Size\n\nThe market size exceeds expectations, with strong segmentation.\n\n")
	b.WriteString("## Competitors\n\nThree competitors dominate; we recommend a niche entry.\n\n")
	for i := 0; i < 30; i++ {
		b.WriteString(fmt.Sprintf("- Finding %d: specific, actionable detail on positioning.\n", i))
	}
	return b.String()
}

func TestRunScoresSuccessfulResult(t *testing.T) {
	provider := &scriptedProvider{content: analysisOutput()}
	p, store := testPipeline(t, provider, nil)

	result, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Degraded() {
		t.Fatal("expected a normal result")
	}
	if result.QualityScore <= 0.5 {
		t.Errorf("expected scored output above base, got %v", result.QualityScore)
	}
	if len(result.QualityGatesPassed) == 0 {
		t.Error("expected gate evaluation results")
	}
	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.requests))
	}
	if !strings.Contains(provider.requests[0].User, "subscription coffee service") {
		t.Error("business idea missing from user prompt")
	}
	if strings.Contains(provider.requests[0].System, "{inject:") {
		t.Error("unresolved injection marker sent to provider")
	}

	recs, err := store.ListRecent("analyst", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(recs))
	}
	if recs[0].TaskName != "market-analysis" || recs[0].Degraded {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}

func TestRunKnowledgeAttribution(t *testing.T) {
	content := analysisOutput() + "\nSegmentation and competitor mapping guided this plan."
	provider := &scriptedProvider{content: content}
	p, _ := testPipeline(t, provider, nil)

	result, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, src := range result.KnowledgeSourcesUsed {
		if src == "market_research" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected market_research attribution, got %v", result.KnowledgeSourcesUsed)
	}
}

func TestRunDegradedSkipsScoring(t *testing.T) {
	provider := &scriptedProvider{err: &executor.ProviderError{
		Provider: "scripted",
		Err:      errors.New("overloaded"),
	}}
	p, store := testPipeline(t, provider, nil)

	result, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}
	if !result.Degraded() {
		t.Fatal("expected degraded result")
	}
	if result.QualityScore != 0.1 {
		t.Errorf("degraded score = %v, want 0.1", result.QualityScore)
	}
	if len(result.KnowledgeSourcesUsed) != 0 || len(result.QualityGatesPassed) != 0 {
		t.Error("degraded result must not be scored")
	}

	recs, err := store.ListRecent("analyst", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recs) != 1 || !recs[0].Degraded {
		t.Errorf("expected one degraded history record, got %+v", recs)
	}
}

func TestRunTransportErrorReturned(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection reset")}
	p, _ := testPipeline(t, provider, nil)

	_, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	if err == nil {
		t.Fatal("expected transport error to surface")
	}
}

func TestRunStrictValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Validation.Strict = true
	cfg.Limits.MaxSystemTokens = 5

	provider := &scriptedProvider{content: analysisOutput()}
	p, _ := testPipeline(t, provider, cfg)

	_, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Violations) == 0 {
		t.Error("expected at least one violation")
	}
	if len(provider.requests) != 0 {
		t.Error("strict validation must block execution")
	}
}

func TestRunAdvisoryValidationStillExecutes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Limits.MaxSystemTokens = 5

	provider := &scriptedProvider{content: analysisOutput()}
	p, _ := testPipeline(t, provider, cfg)

	result, err := p.Run(context.Background(), RunRequest{
		Task:         testTask(),
		BusinessIdea: "subscription coffee service",
	})
	if err != nil {
		t.Fatalf("advisory mode must not fail: %v", err)
	}
	if result.Degraded() {
		t.Error("expected normal result despite validation violations")
	}
}

func TestRunMissingTask(t *testing.T) {
	p, _ := testPipeline(t, &scriptedProvider{content: "x"}, nil)
	if _, err := p.Run(context.Background(), RunRequest{}); err == nil {
		t.Fatal("expected error for missing task")
	}
}
