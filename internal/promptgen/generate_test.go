package promptgen

import (
	"strings"
	"testing"
)

func TestGenerateMetadata(t *testing.T) {
	tpl := TemplatePair{
		System: "## Role\nYou are {agent_role}.\n\n## Task\n{task_description}",
		User:   "Idea: {business_idea}",
	}
	ctx := SubstitutionContext{
		"agent_role":       "a strategist",
		"task_description": "Evaluate the plan with care and depth.",
		"business_idea":    "meal kits",
	}

	prompt := Generate(tpl, ctx, OptimizeOptions{TokenOptimization: true, QualityInstructions: true})

	if prompt.Metadata.SystemTokens != EstimateTokens(prompt.System) {
		t.Errorf("system token estimate mismatch")
	}
	if prompt.Metadata.TotalTokens != prompt.Metadata.SystemTokens+prompt.Metadata.UserTokens {
		t.Errorf("total tokens must be system+user")
	}
	if len(prompt.Metadata.Sections) < 2 {
		t.Errorf("expected detected sections, got %v", prompt.Metadata.Sections)
	}
	if len(prompt.Metadata.UsedKeys) != 3 {
		t.Errorf("expected 3 used keys, got %v", prompt.Metadata.UsedKeys)
	}
	wantPasses := []string{"token_optimization", "quality_instructions"}
	if len(prompt.Metadata.OptimizationPasses) != len(wantPasses) {
		t.Errorf("expected passes %v, got %v", wantPasses, prompt.Metadata.OptimizationPasses)
	}
	if !strings.Contains(prompt.System, "## Quality requirements") {
		t.Errorf("quality instructions missing from system prompt")
	}
	if prompt.Metadata.ConstructionScore <= 0.5 {
		t.Errorf("well-formed prompt should score above base, got %f", prompt.Metadata.ConstructionScore)
	}
}

func TestGenerateLeftoverLowersConstructionScore(t *testing.T) {
	bad := Generate(TemplatePair{System: "{not a placeholder}", User: "u"}, SubstitutionContext{}, OptimizeOptions{})
	good := Generate(TemplatePair{System: "## A\nplain", User: "u"}, SubstitutionContext{}, OptimizeOptions{})
	if bad.Metadata.ConstructionScore >= good.Metadata.ConstructionScore {
		t.Errorf("leftover residue must lower construction score: %f vs %f",
			bad.Metadata.ConstructionScore, good.Metadata.ConstructionScore)
	}
}
