package promptgen

import (
	"regexp"
	"strings"
)

// OptimizeOptions gates the individual optimizer transforms. When several
// flags are set the transforms run in declaration order, each on the
// previous transform's output.
type OptimizeOptions struct {
	TokenOptimization   bool
	ClarityEnhancement  bool
	ContextCompression  bool
	QualityInstructions bool
}

const (
	// minSentenceLen is the compression cutoff. Sentences shorter than this
	// are dropped, including short but meaningful directives; that loss is
	// accepted as a brevity tradeoff.
	minSentenceLen = 20

	qualityInstructionsBlock = `## Quality requirements
- Be specific and actionable; avoid generic filler.
- Ground every claim in the provided context.
- Structure the response with clear headers and lists where helpful.
- State assumptions explicitly when information is missing.`
)

var (
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern  = regexp.MustCompile(`[ \t]{2,}`)
	labelLinePattern = regexp.MustCompile(`^([A-Z][A-Za-z0-9 /&-]{1,40}):$`)
	sentencePattern  = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
)

// Optimize applies the enabled transforms to a prompt and reports which
// passes ran. Every transform is idempotent.
func Optimize(prompt string, opts OptimizeOptions) (string, []string) {
	var passes []string

	if opts.TokenOptimization {
		prompt = optimizeTokens(prompt)
		passes = append(passes, "token_optimization")
	}
	if opts.ClarityEnhancement {
		prompt = enhanceClarity(prompt)
		passes = append(passes, "clarity_enhancement")
	}
	if opts.ContextCompression {
		prompt = compressContext(prompt)
		passes = append(passes, "context_compression")
	}
	if opts.QualityInstructions {
		prompt = appendQualityInstructions(prompt)
		passes = append(passes, "quality_instructions")
	}

	return prompt, passes
}

func optimizeTokens(text string) string {
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = spaceRunPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func enhanceClarity(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := labelLinePattern.FindStringSubmatch(trimmed); m != nil {
			lines[i] = "## " + m[1]
			continue
		}
		for _, bullet := range []string{"* ", "• "} {
			if strings.HasPrefix(trimmed, bullet) {
				lines[i] = "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, bullet))
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func compressContext(text string) string {
	sentences := sentencePattern.FindAllString(text, -1)
	var kept []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) >= minSentenceLen {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

func appendQualityInstructions(text string) string {
	if strings.Contains(text, qualityInstructionsBlock) {
		return text
	}
	return strings.TrimRight(text, "\n") + "\n\n" + qualityInstructionsBlock
}
