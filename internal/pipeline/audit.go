package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/promptgen"
	"github.com/kayz/promptflow/internal/taskdef"
)

var auditMu sync.Mutex

type auditRecord struct {
	Timestamp    string   `json:"timestamp"`
	TaskName     string   `json:"task_name"`
	AgentID      string   `json:"agent_id"`
	PromptDigest string   `json:"prompt_digest"`
	SystemPrompt string   `json:"system_prompt"`
	UserPrompt   string   `json:"user_prompt"`
	Sections     []string `json:"sections,omitempty"`
	Passes       []string `json:"passes,omitempty"`
	TotalTokens  int      `json:"total_tokens"`
	Violations   []string `json:"violations,omitempty"`
}

// Auditor appends one JSONL line per generated prompt, rotating files daily
// and pruning files past the retention window.
type Auditor struct {
	cfg config.AuditConfig
}

func NewAuditor(cfg config.AuditConfig) *Auditor {
	return &Auditor{cfg: cfg}
}

func (a *Auditor) prefix() string {
	prefix := strings.TrimSpace(a.cfg.FilePrefix)
	if prefix == "" {
		prefix = "promptflow"
	}
	return prefix
}

// Write records one generated prompt. No-op when auditing is disabled.
func (a *Auditor) Write(task *taskdef.Task, prompt promptgen.GeneratedPrompt, violations []string) error {
	if !a.cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(a.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	now := time.Now()
	fileName := fmt.Sprintf("%s-%s.jsonl", a.prefix(), now.Format("2006-01-02"))
	filePath := filepath.Join(a.cfg.Dir, fileName)

	record := auditRecord{
		Timestamp:    now.Format(time.RFC3339),
		TaskName:     task.Name,
		AgentID:      task.AgentID,
		PromptDigest: promptDigest(prompt),
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Sections:     prompt.Metadata.Sections,
		Passes:       prompt.Metadata.OptimizationPasses,
		TotalTokens:  prompt.Metadata.TotalTokens,
		Violations:   violations,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if err := appendJSONL(filePath, line); err != nil {
		return err
	}
	return a.cleanupWithNow(now)
}

func appendJSONL(filePath string, line []byte) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// Cleanup removes audit files older than the retention window.
func (a *Auditor) Cleanup() error {
	auditMu.Lock()
	defer auditMu.Unlock()
	return a.cleanupWithNow(time.Now())
}

func (a *Auditor) cleanupWithNow(now time.Time) error {
	if !a.cfg.Enabled || a.cfg.RetentionDays <= 0 {
		return nil
	}

	entries, err := os.ReadDir(a.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list audit dir: %w", err)
	}

	prefix := a.prefix()
	cutoff := startOfDay(now.AddDate(0, 0, -a.cfg.RetentionDays))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		fileDate, ok := parseAuditDate(name, prefix)
		if !ok {
			continue
		}
		if fileDate.Before(cutoff) {
			filePath := filepath.Join(a.cfg.Dir, name)
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old audit file %s: %w", filePath, err)
			}
		}
	}
	return nil
}

func parseAuditDate(filename, prefix string) (time.Time, bool) {
	raw := strings.TrimSuffix(filename, ".jsonl")
	raw = strings.TrimPrefix(raw, prefix+"-")
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func promptDigest(prompt promptgen.GeneratedPrompt) string {
	sum := sha256.Sum256([]byte(prompt.System + "\x00" + prompt.User))
	return hex.EncodeToString(sum[:])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
