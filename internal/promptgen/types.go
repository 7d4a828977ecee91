package promptgen

import (
	"fmt"
	"sort"
)

// SubstitutionContext maps placeholder names to scalar values, lists, or
// pre-rendered text blocks. Built once per pipeline invocation and treated
// as immutable afterwards.
type SubstitutionContext map[string]any

// StringValue renders a context value for substitution. Missing keys and
// nil values render as the empty string.
func (c SubstitutionContext) StringValue(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		out := ""
		for i, s := range t {
			if i > 0 {
				out += ", "
			}
			out += s
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}

// Keys returns the context keys in sorted order.
func (c SubstitutionContext) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TemplatePair is a system/user prompt template pair. Templates may contain
// {name} placeholders, {conditional:name} markers, {inject:name} markers and
// {personalized:aspect} markers.
type TemplatePair struct {
	System string
	User   string
}

// PromptMetadata describes how a GeneratedPrompt was constructed.
type PromptMetadata struct {
	SystemTokens       int      `json:"system_tokens"`
	UserTokens         int      `json:"user_tokens"`
	TotalTokens        int      `json:"total_tokens"`
	UsedKeys           []string `json:"used_keys"`
	Sections           []string `json:"sections"`
	ConstructionScore  float64  `json:"construction_score"`
	OptimizationPasses []string `json:"optimization_passes"`
}

// GeneratedPrompt is a fully expanded and optimized prompt pair, ready for
// validation and a single execution. It is not retained after execution.
type GeneratedPrompt struct {
	System   string
	User     string
	Metadata PromptMetadata
}

// EstimateTokens approximates the token count of text as ceil(len/4).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
