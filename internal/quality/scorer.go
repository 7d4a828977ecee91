package quality

import (
	"strings"
)

// TaskCriteria carries the task-level expectations the scorer measures
// generated text against. A nil criteria means the caller runs in
// simplified mode.
type TaskCriteria struct {
	RequiredElements []string
	Deliverables     []string
	QualityGates     []string
}

// KnowledgeSource is a named block of reference text. Attribution reports
// likely influence on generated output, not verified provenance.
type KnowledgeSource struct {
	Name    string
	Content string
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {},
	"that": {}, "this": {}, "your": {}, "from": {},
	"will": {}, "should": {},
}

type keywordRule struct {
	fragment string
	keywords []string
}

// deliverableKeywords maps a deliverable category to the keywords that count
// as addressing it. Ordered: the first category found in the deliverable
// name decides, so names containing several categories score the same on
// every run.
var deliverableKeywords = []keywordRule{
	{"framework", []string{"framework", "structure", "approach"}},
	{"strategy", []string{"strategy", "plan", "approach"}},
	{"analysis", []string{"analysis", "assessment", "evaluation"}},
	{"recommendation", []string{"recommendation", "suggest", "advise"}},
}

// Score computes a deterministic 0-1 content-quality score from structural
// and lexical heuristics.
func Score(content string, criteria *TaskCriteria) float64 {
	score := 0.5

	if len(content) > 1000 {
		score += 0.1
	}
	if len(content) > 2000 {
		score += 0.1
	}
	if hasStructuralMarkup(content) {
		score += 0.1
	}
	if hasBullets(content) {
		score += 0.05
	}

	lower := strings.ToLower(content)

	if criteria != nil && len(criteria.RequiredElements) > 0 {
		matched := 0
		for _, element := range criteria.RequiredElements {
			if elementAddressed(lower, element) {
				matched++
			}
		}
		score += 0.2 * float64(matched) / float64(len(criteria.RequiredElements))
	}

	if criteria != nil && len(criteria.Deliverables) > 0 {
		addressed := 0
		for _, deliverable := range criteria.Deliverables {
			if deliverableAddressed(lower, deliverable) {
				addressed++
			}
		}
		score += 0.15 * float64(addressed) / float64(len(criteria.Deliverables))
	} else {
		// Simplified-mode callers supply no deliverables; grant the
		// deliverable share outright.
		score += 0.15
	}

	return clamp01(score)
}

// keyTerms extracts up to 3 scoring terms from a required element: words
// longer than 3 characters that are not stop words.
func keyTerms(element string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(element)) {
		word = strings.Trim(word, ".,;:!?()\"'")
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		terms = append(terms, word)
		if len(terms) == 3 {
			break
		}
	}
	return terms
}

func elementAddressed(lowerContent, element string) bool {
	terms := keyTerms(element)
	if len(terms) == 0 {
		return strings.Contains(lowerContent, strings.ToLower(element))
	}
	for _, term := range terms {
		if strings.Contains(lowerContent, term) {
			return true
		}
	}
	return false
}

func deliverableAddressed(lowerContent, deliverable string) bool {
	lowerDeliverable := strings.ToLower(deliverable)
	for _, rule := range deliverableKeywords {
		if !strings.Contains(lowerDeliverable, rule.fragment) {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lowerContent, kw) {
				return true
			}
		}
		return false
	}
	fields := strings.Fields(lowerDeliverable)
	if len(fields) == 0 {
		return false
	}
	return strings.Contains(lowerContent, fields[0])
}

// AttributeKnowledge returns the names of sources whose header concepts
// appear in the content. Deterministic: same inputs, same list.
func AttributeKnowledge(content string, sources []KnowledgeSource) []string {
	lower := strings.ToLower(content)
	var used []string
	for _, source := range sources {
		if sourceUsed(lower, source.Content) {
			used = append(used, source.Name)
		}
	}
	return used
}

// sourceUsed extracts terms from the source's heading lines (first 10 lines,
// words longer than 4 characters, at most 10 terms) and checks whether any
// appears in the content.
func sourceUsed(lowerContent, sourceText string) bool {
	lines := strings.Split(sourceText, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	terms := 0
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(line)) {
			word = strings.Trim(word, "#*.,;:!?()\"'")
			if len(word) <= 4 {
				continue
			}
			if strings.Contains(lowerContent, word) {
				return true
			}
			terms++
			if terms == 10 {
				return false
			}
		}
	}
	return false
}

// gateKeywords maps gate-name fragments to the keywords that satisfy them.
// Ordered: the first fragment found in the gate name decides, so gate names
// containing several fragments evaluate the same on every run.
var gateKeywords = []keywordRule{
	{"comprehensive", []string{"comprehensive", "detailed", "thorough"}},
	{"specific", []string{"specifically", "for example", "step"}},
	{"actionable", []string{"recommend", "suggest", "action", "implement"}},
	{"strategic", []string{"strategy", "strategic", "long-term", "positioning"}},
}

// EvaluateGates reports which named quality gates the content satisfies.
// With no task-level gates a fixed fallback set applies. Gate names that
// match no known fragment pass by default (fail-open, unlike conditionals).
func EvaluateGates(content string, gates []string) []string {
	lower := strings.ToLower(content)

	if len(gates) == 0 {
		var passed []string
		if len(content) > 500 {
			passed = append(passed, "adequate_length")
		}
		if hasStructuralMarkup(content) {
			passed = append(passed, "structured_content")
		}
		if strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest") {
			passed = append(passed, "actionable_content")
		}
		return passed
	}

	var passed []string
	for _, gate := range gates {
		if gateSatisfied(lower, gate) {
			passed = append(passed, gate)
		}
	}
	return passed
}

func gateSatisfied(lowerContent, gate string) bool {
	lowerGate := strings.ToLower(gate)
	for _, rule := range gateKeywords {
		if !strings.Contains(lowerGate, rule.fragment) {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lowerContent, kw) {
				return true
			}
		}
		return false
	}
	return true
}

func hasStructuralMarkup(content string) bool {
	return strings.Contains(content, "#") || strings.Contains(content, "**")
}

func hasBullets(content string) bool {
	return strings.Contains(content, "- ") || strings.Contains(content, "* ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
