package persist

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListRecent(t *testing.T) {
	s := newTestStore(t)

	for i, agent := range []string{"researcher", "strategist", "researcher"} {
		rec := &ExecutionRecord{
			AgentID:          agent,
			TaskName:         "t",
			Content:          "output",
			QualityScore:     0.8,
			TokensUsed:       10 + i,
			KnowledgeSources: []string{"marketing"},
			QualityGates:     []string{"adequate_length"},
			CreatedAt:        time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := s.Save(rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("Save must assign an ID")
		}
	}

	all, err := s.ListRecent("", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].TokensUsed != 12 {
		t.Errorf("newest first expected, got %+v", all[0])
	}
	if len(all[0].KnowledgeSources) != 1 || all[0].KnowledgeSources[0] != "marketing" {
		t.Errorf("knowledge sources round trip failed: %v", all[0].KnowledgeSources)
	}

	byAgent, err := s.ListRecent("researcher", 10)
	if err != nil {
		t.Fatalf("ListRecent filtered: %v", err)
	}
	if len(byAgent) != 2 {
		t.Errorf("expected 2 researcher records, got %d", len(byAgent))
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)

	old := &ExecutionRecord{AgentID: "a", TaskName: "t", CreatedAt: time.Now().AddDate(0, 0, -10)}
	fresh := &ExecutionRecord{AgentID: "a", TaskName: "t", CreatedAt: time.Now()}
	if err := s.Save(old); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune(7)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned, got %d", removed)
	}

	if removed, err = s.Prune(0); err != nil || removed != 0 {
		t.Errorf("zero retention must disable pruning, got %d, %v", removed, err)
	}
}
