package promptgen

import (
	"regexp"
	"sort"
	"strings"
)

var (
	placeholderPattern  = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
	conditionalPattern  = regexp.MustCompile(`\{conditional:([a-zA-Z0-9_]+)\}`)
	injectPattern       = regexp.MustCompile(`\{inject:([a-zA-Z0-9_]+)\}`)
	personalizedPattern = regexp.MustCompile(`\{personalized:([a-zA-Z0-9_]+)\}`)
)

// conditionalRule pairs a named predicate over the context with the content
// that replaces the marker when the predicate holds.
type conditionalRule struct {
	when    func(SubstitutionContext) bool
	content func(SubstitutionContext) string
}

// Expander rewrites prompt templates against a substitution context.
// Pass order is fixed: literal substitution, conditional resolution,
// injection, personalization. Later passes may reference text inserted by
// earlier ones.
type Expander struct {
	conditionals  map[string]conditionalRule
	injections    map[string]func(SubstitutionContext) string
	personalizers map[string]func(SubstitutionContext) string
}

// NewExpander builds an Expander with the fixed resolution tables.
// Unrecognized conditional names evaluate false (fail-closed); unresolved
// injection points and personalization markers collapse to empty string.
func NewExpander() *Expander {
	e := &Expander{
		conditionals:  make(map[string]conditionalRule),
		injections:    make(map[string]func(SubstitutionContext) string),
		personalizers: make(map[string]func(SubstitutionContext) string),
	}

	e.conditionals["ecommerce_business"] = conditionalRule{
		when: businessTypeIs("ecommerce", "e-commerce", "retail"),
		content: func(ctx SubstitutionContext) string {
			return "Focus on conversion funnels, product positioning and fulfillment economics."
		},
	}
	e.conditionals["service_business"] = conditionalRule{
		when: businessTypeIs("service", "services", "consulting", "agency"),
		content: func(ctx SubstitutionContext) string {
			return "Focus on service packaging, delivery capacity and client retention."
		},
	}
	e.conditionals["has_resources"] = conditionalRule{
		when: func(ctx SubstitutionContext) bool {
			return ctx.StringValue("available_resources") != ""
		},
		content: func(ctx SubstitutionContext) string {
			return "Available resources: " + ctx.StringValue("available_resources")
		},
	}
	e.conditionals["has_prior_output"] = conditionalRule{
		when: func(ctx SubstitutionContext) bool {
			for key := range ctx {
				if strings.HasPrefix(key, "previous_") {
					return true
				}
			}
			return false
		},
		content: func(ctx SubstitutionContext) string {
			return "Build directly on the outputs of earlier pipeline stages included below."
		},
	}

	e.injections["knowledge_summary"] = joinPrefixed("knowledge_")
	e.injections["stage_outputs"] = joinPrefixed("previous_")
	e.injections["user_context"] = func(ctx SubstitutionContext) string {
		var parts []string
		if v := ctx.StringValue("business_idea"); v != "" {
			parts = append(parts, "Business idea: "+v)
		}
		if v := ctx.StringValue("target_market"); v != "" {
			parts = append(parts, "Target market: "+v)
		}
		if v := ctx.StringValue("budget"); v != "" {
			parts = append(parts, "Budget: "+v)
		}
		return strings.Join(parts, "\n")
	}

	e.personalizers["tone"] = func(ctx SubstitutionContext) string {
		tone := ctx.StringValue("communication_tone")
		if tone == "" {
			return ""
		}
		return "Use a " + tone + " tone throughout the response."
	}
	e.personalizers["industry"] = func(ctx SubstitutionContext) string {
		industry := ctx.StringValue("industry")
		if industry == "" {
			return ""
		}
		return "Tailor every example and recommendation to the " + industry + " industry."
	}
	e.personalizers["experience"] = func(ctx SubstitutionContext) string {
		switch ctx.StringValue("experience_level") {
		case "beginner":
			return "Explain concepts from first principles and avoid unexplained jargon."
		case "advanced", "expert":
			return "Skip basics and go straight to advanced, actionable detail."
		default:
			return ""
		}
	}

	return e
}

func businessTypeIs(types ...string) func(SubstitutionContext) bool {
	return func(ctx SubstitutionContext) bool {
		actual := strings.ToLower(ctx.StringValue("business_type"))
		for _, t := range types {
			if actual == t {
				return true
			}
		}
		return false
	}
}

func joinPrefixed(prefix string) func(SubstitutionContext) string {
	return func(ctx SubstitutionContext) string {
		var keys []string
		for key := range ctx {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		var blocks []string
		for _, key := range keys {
			text := ctx.StringValue(key)
			if text == "" {
				continue
			}
			title := strings.ReplaceAll(strings.TrimPrefix(key, prefix), "_", " ")
			blocks = append(blocks, "["+title+"]\n"+text)
		}
		return strings.Join(blocks, "\n\n")
	}
}

// Expand rewrites both templates of a pair. Plain placeholders missing from
// the context substitute as empty string; markers of the other three kinds
// resolve through their tables. Any residue that survives all four passes is
// left in place for the validator to report.
func (e *Expander) Expand(tpl TemplatePair, ctx SubstitutionContext) (system, user string, usedKeys []string) {
	used := make(map[string]struct{})
	system = e.expandOne(tpl.System, ctx, used)
	user = e.expandOne(tpl.User, ctx, used)

	usedKeys = make([]string, 0, len(used))
	for key := range used {
		usedKeys = append(usedKeys, key)
	}
	sort.Strings(usedKeys)
	return system, user, usedKeys
}

func (e *Expander) expandOne(template string, ctx SubstitutionContext, used map[string]struct{}) string {
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value := ctx.StringValue(name)
		if value != "" {
			used[name] = struct{}{}
		}
		return value
	})

	out = conditionalPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := conditionalPattern.FindStringSubmatch(match)[1]
		rule, ok := e.conditionals[name]
		if !ok || !rule.when(ctx) {
			return ""
		}
		return rule.content(ctx)
	})

	out = injectPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := injectPattern.FindStringSubmatch(match)[1]
		resolve, ok := e.injections[name]
		if !ok {
			return ""
		}
		return resolve(ctx)
	})

	out = personalizedPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := personalizedPattern.FindStringSubmatch(match)[1]
		resolve, ok := e.personalizers[name]
		if !ok {
			return ""
		}
		return resolve(ctx)
	})

	return out
}
