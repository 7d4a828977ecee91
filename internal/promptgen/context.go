package promptgen

import "strings"

// ContextInput collects everything a pipeline stage hands over before
// template expansion: task metadata, user-supplied inputs, prior-stage
// outputs and loaded knowledge snippets.
type ContextInput struct {
	TaskName        string
	TaskDescription string
	OutputFormat    string
	AgentID         string
	BusinessIdea    string

	// UserInputs are merged into the context under their own keys.
	UserInputs map[string]string

	// StageOutputs holds prior-stage outputs keyed by stage identity.
	// Each becomes previous_<stage>.
	StageOutputs map[string]string

	// Knowledge holds loaded knowledge-base snippets keyed by focus area.
	// Each becomes knowledge_<focus>.
	Knowledge map[string]string

	// Extra carries caller-defined values merged last.
	Extra map[string]any
}

// AssembleContext flattens a ContextInput into a single substitution table.
// Later sources win on key collisions: task metadata, then user inputs,
// then stage outputs, then knowledge, then extras.
func AssembleContext(in ContextInput) SubstitutionContext {
	ctx := SubstitutionContext{}

	put := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			ctx[key] = value
		}
	}

	put("task_name", in.TaskName)
	put("task_description", in.TaskDescription)
	put("output_format", in.OutputFormat)
	put("agent_id", in.AgentID)
	put("business_idea", in.BusinessIdea)

	for k, v := range in.UserInputs {
		put(normalizeKey(k), v)
	}
	for stage, out := range in.StageOutputs {
		put("previous_"+normalizeKey(stage), out)
	}
	for focus, text := range in.Knowledge {
		put("knowledge_"+normalizeKey(focus), text)
	}
	for k, v := range in.Extra {
		if v != nil {
			ctx[normalizeKey(k)] = v
		}
	}

	return ctx
}

// normalizeKey lowercases a key and replaces separators so lookups stay
// consistent with {placeholder} names.
func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
