package promptgen

import (
	"regexp"
	"strings"
)

var sectionHeaderPattern = regexp.MustCompile(`(?m)^#{1,3} +(.+)$`)

// Generate runs expansion and optimization over a template pair and wraps
// the result with construction metadata. The caller validates and executes
// the returned prompt; it is discarded after one execution.
func Generate(tpl TemplatePair, ctx SubstitutionContext, opts OptimizeOptions) GeneratedPrompt {
	expander := NewExpander()
	system, user, usedKeys := expander.Expand(tpl, ctx)

	system, systemPasses := Optimize(system, opts)
	user, _ = Optimize(user, OptimizeOptions{
		TokenOptimization:  opts.TokenOptimization,
		ContextCompression: opts.ContextCompression,
	})

	meta := PromptMetadata{
		SystemTokens:       EstimateTokens(system),
		UserTokens:         EstimateTokens(user),
		UsedKeys:           usedKeys,
		Sections:           sectionTitles(system),
		OptimizationPasses: systemPasses,
	}
	meta.TotalTokens = meta.SystemTokens + meta.UserTokens
	meta.ConstructionScore = constructionScore(system, user, meta)

	return GeneratedPrompt{System: system, User: user, Metadata: meta}
}

func sectionTitles(text string) []string {
	matches := sectionHeaderPattern.FindAllStringSubmatch(text, -1)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, strings.TrimSpace(m[1]))
	}
	return titles
}

// constructionScore rates how well a prompt was assembled. This is distinct
// from output quality scoring: it looks only at the prompt itself.
func constructionScore(system, user string, meta PromptMetadata) float64 {
	score := 0.5
	if strings.TrimSpace(system) != "" && strings.TrimSpace(user) != "" {
		score += 0.1
	}
	if len(meta.Sections) > 0 {
		score += 0.1
	}
	if len(meta.UsedKeys) >= 3 {
		score += 0.1
	}
	if leftoverPattern.MatchString(system) || leftoverPattern.MatchString(user) {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
