package promptgen

import "testing"

func TestAssembleContext(t *testing.T) {
	ctx := AssembleContext(ContextInput{
		TaskName:     "market-research",
		BusinessIdea: "subscription coffee",
		UserInputs:   map[string]string{"Target Market": "remote workers"},
		StageOutputs: map[string]string{"idea-refinement": "refined pitch"},
		Knowledge:    map[string]string{"marketing": "positioning notes"},
		Extra:        map[string]any{"round": 2},
	})

	want := map[string]string{
		"task_name":                 "market-research",
		"business_idea":             "subscription coffee",
		"target_market":             "remote workers",
		"previous_idea_refinement":  "refined pitch",
		"knowledge_marketing":       "positioning notes",
	}
	for key, value := range want {
		if got := ctx.StringValue(key); got != value {
			t.Errorf("ctx[%q] = %q, want %q", key, got, value)
		}
	}
	if got := ctx.StringValue("round"); got != "2" {
		t.Errorf("extra value not rendered, got %q", got)
	}
}

func TestAssembleContextSkipsEmpty(t *testing.T) {
	ctx := AssembleContext(ContextInput{
		TaskName:   "t",
		UserInputs: map[string]string{"budget": "   "},
	})
	if _, ok := ctx["budget"]; ok {
		t.Error("blank values must not enter the context")
	}
}

func TestStringValueRendersLists(t *testing.T) {
	ctx := SubstitutionContext{"channels": []string{"email", "social"}}
	if got := ctx.StringValue("channels"); got != "email, social" {
		t.Errorf("list rendering = %q", got)
	}
}
