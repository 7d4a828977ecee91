package taskdef

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadByName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "market-research.yaml"), `
name: market-research
agent_id: researcher
system_template: "You are {agent_role}."
user_template: "Analyze {business_idea}."
required_elements:
  - competitor analysis
deliverables:
  - market analysis
quality_gates:
  - actionable_insights
knowledge_focus:
  - marketing
`)

	task, err := LoadByName(dir, "market-research")
	if err != nil {
		t.Fatalf("LoadByName: %v", err)
	}
	if task.AgentID != "researcher" {
		t.Errorf("agent_id = %q", task.AgentID)
	}
	if len(task.RequiredElements) != 1 || len(task.Deliverables) != 1 {
		t.Errorf("expectations not parsed: %+v", task)
	}
}

func TestLoadRejectsInvalidTask(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "agent_id: a\nsystem_template: x\n"},
		{"missing agent", "name: t\nsystem_template: x\n"},
		{"missing templates", "name: t\nagent_id: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			writeFile(t, path, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestKnowledgeBaseCaching(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "marketing.md"), "# Positioning\ncontent")

	kb := NewKnowledgeBase(dir)
	if got := kb.Get("Marketing"); got != "# Positioning\ncontent" {
		t.Errorf("Get = %q", got)
	}

	// Cached: deleting the file must not change the answer.
	if err := os.Remove(filepath.Join(dir, "marketing.md")); err != nil {
		t.Fatal(err)
	}
	if got := kb.Get("marketing"); got != "# Positioning\ncontent" {
		t.Errorf("cache miss after delete: %q", got)
	}

	if got := kb.Get("absent"); got != "" {
		t.Errorf("missing focus should be empty, got %q", got)
	}

	all := kb.GetAll([]string{"marketing", "absent"})
	if len(all) != 1 {
		t.Errorf("GetAll should drop empties, got %v", all)
	}
}
