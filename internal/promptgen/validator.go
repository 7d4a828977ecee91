package promptgen

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationRules configures the validator. Zero ceilings disable the
// corresponding token check.
type ValidationRules struct {
	MaxSystemTokens   int
	MaxUserTokens     int
	MaxCombinedTokens int

	// RequiredElements must each appear verbatim in the system or user prompt.
	RequiredElements []string

	// QualityChecks names predicates from the quality table. Unknown names
	// pass (fail-open, kept for forward compatibility).
	QualityChecks []string
}

// ValidationReport lists every violation found; checks never short-circuit.
type ValidationReport struct {
	OK         bool
	Violations []string
}

// leftoverPattern is wider than the expander's marker grammar so malformed
// tokens the expander could not resolve still get reported.
var leftoverPattern = regexp.MustCompile(`\{[^{}\n]+\}`)

// qualityPredicates is the fixed table behind ValidationRules.QualityChecks.
var qualityPredicates = map[string]func(system, user string) bool{
	"has_role_definition": func(system, _ string) bool {
		return strings.Contains(system, "You are")
	},
	"has_output_format": func(system, user string) bool {
		combined := strings.ToLower(system + "\n" + user)
		return strings.Contains(combined, "format")
	},
	"has_task_statement": func(_, user string) bool {
		return strings.TrimSpace(user) != ""
	},
	"reasonable_length": func(system, user string) bool {
		return len(system)+len(user) >= 100
	},
}

// Validate runs every check and reports all violations. Callers decide
// whether a failed report blocks execution; by default it is advisory.
func Validate(system, user string, rules ValidationRules) ValidationReport {
	var violations []string

	systemTokens := EstimateTokens(system)
	userTokens := EstimateTokens(user)
	combined := systemTokens + userTokens

	if rules.MaxSystemTokens > 0 && systemTokens > rules.MaxSystemTokens {
		violations = append(violations, fmt.Sprintf(
			"system prompt exceeds token ceiling: %d > %d", systemTokens, rules.MaxSystemTokens))
	}
	if rules.MaxUserTokens > 0 && userTokens > rules.MaxUserTokens {
		violations = append(violations, fmt.Sprintf(
			"user prompt exceeds token ceiling: %d > %d", userTokens, rules.MaxUserTokens))
	}
	if rules.MaxCombinedTokens > 0 && combined > rules.MaxCombinedTokens {
		violations = append(violations, fmt.Sprintf(
			"combined prompt exceeds token ceiling: %d > %d", combined, rules.MaxCombinedTokens))
	}

	for _, element := range rules.RequiredElements {
		if !strings.Contains(system, element) && !strings.Contains(user, element) {
			violations = append(violations, fmt.Sprintf("missing required element: %q", element))
		}
	}

	for _, leftover := range leftoverPattern.FindAllString(system, -1) {
		violations = append(violations, fmt.Sprintf("unresolved placeholder in system prompt: %s", leftover))
	}
	for _, leftover := range leftoverPattern.FindAllString(user, -1) {
		violations = append(violations, fmt.Sprintf("unresolved placeholder in user prompt: %s", leftover))
	}

	for _, name := range rules.QualityChecks {
		predicate, ok := qualityPredicates[name]
		if !ok {
			continue
		}
		if !predicate(system, user) {
			violations = append(violations, fmt.Sprintf("quality check failed: %s", name))
		}
	}

	return ValidationReport{OK: len(violations) == 0, Violations: violations}
}
