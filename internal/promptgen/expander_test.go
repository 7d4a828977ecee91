package promptgen

import (
	"strings"
	"testing"
)

func TestExpandSubstitutionCompleteness(t *testing.T) {
	tpl := TemplatePair{
		System: "You are {agent_role} working on {task_name}.",
		User:   "Idea: {business_idea}\nFormat: {output_format}",
	}
	ctx := SubstitutionContext{
		"agent_role":    "a market analyst",
		"task_name":     "market-research",
		"business_idea": "subscription coffee",
		"output_format": "markdown",
	}

	system, user, used := NewExpander().Expand(tpl, ctx)

	if strings.Contains(system, "{") || strings.Contains(user, "{") {
		t.Fatalf("expected no residue, got system=%q user=%q", system, user)
	}
	if !strings.Contains(system, "a market analyst") {
		t.Errorf("system missing substituted role: %q", system)
	}
	if len(used) != 4 {
		t.Errorf("expected 4 used keys, got %v", used)
	}
}

func TestExpandMissingKeyBecomesEmpty(t *testing.T) {
	system, _, used := NewExpander().Expand(TemplatePair{System: "before {missing} after"}, SubstitutionContext{})
	if system != "before  after" {
		t.Errorf("missing key must substitute as empty string, got %q", system)
	}
	if len(used) != 0 {
		t.Errorf("missing key must not count as used, got %v", used)
	}
}

func TestExpandConditionals(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ctx      SubstitutionContext
		want     string
		gone     bool
	}{
		{
			name:     "predicate true",
			template: "{conditional:has_resources}",
			ctx:      SubstitutionContext{"available_resources": "two engineers"},
			want:     "two engineers",
		},
		{
			name:     "predicate false removes block",
			template: "a{conditional:has_resources}b",
			ctx:      SubstitutionContext{},
			gone:     true,
		},
		{
			name:     "unknown predicate fails closed",
			template: "a{conditional:totally_unknown}b",
			ctx:      SubstitutionContext{"available_resources": "x"},
			gone:     true,
		},
		{
			name:     "business type match",
			template: "{conditional:ecommerce_business}",
			ctx:      SubstitutionContext{"business_type": "ecommerce"},
			want:     "conversion funnels",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := NewExpander().Expand(TemplatePair{System: tt.template}, tt.ctx)
			if tt.gone {
				if got != "ab" {
					t.Errorf("expected marker removed, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestExpandInjectionPoints(t *testing.T) {
	ctx := SubstitutionContext{
		"knowledge_marketing": "Positioning beats features.",
		"knowledge_finance":   "Track unit economics early.",
	}
	got, _, _ := NewExpander().Expand(TemplatePair{System: "{inject:knowledge_summary}"}, ctx)

	if !strings.Contains(got, "Positioning beats features.") || !strings.Contains(got, "Track unit economics early.") {
		t.Fatalf("expected both knowledge blocks injected, got %q", got)
	}
	// Blocks come out in deterministic (sorted key) order.
	if strings.Index(got, "finance") > strings.Index(got, "marketing") {
		t.Errorf("expected sorted injection order, got %q", got)
	}

	empty, _, _ := NewExpander().Expand(TemplatePair{System: "x{inject:nope}y"}, ctx)
	if empty != "xy" {
		t.Errorf("unresolved injection point must collapse to empty, got %q", empty)
	}
}

func TestExpandPersonalization(t *testing.T) {
	ctx := SubstitutionContext{"communication_tone": "direct"}
	got, _, _ := NewExpander().Expand(TemplatePair{User: "{personalized:tone}"}, SubstitutionContext{})
	if got != "" {
		t.Errorf("personalization without context must be empty, got %q", got)
	}
	_, user, _ := NewExpander().Expand(TemplatePair{User: "{personalized:tone}"}, ctx)
	if !strings.Contains(user, "direct tone") {
		t.Errorf("expected tone personalization, got %q", user)
	}
}

func TestExpandPassOrdering(t *testing.T) {
	// The conditional marker survives literal substitution and is resolved
	// afterwards, so a placeholder inside the template cannot fabricate one.
	ctx := SubstitutionContext{"trick": "{conditional:has_resources}", "available_resources": "gold"}
	got, _, _ := NewExpander().Expand(TemplatePair{System: "{trick}"}, ctx)
	if !strings.Contains(got, "gold") {
		// Literal pass inserts the marker text, conditional pass then resolves it.
		t.Errorf("expected marker inserted by literal pass to resolve, got %q", got)
	}
}
