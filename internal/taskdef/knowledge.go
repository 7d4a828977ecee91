package taskdef

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kayz/promptflow/internal/logger"
)

// KnowledgeBase loads knowledge snippets by focus area from a directory of
// markdown files (<dir>/<focus>.md) and caches them for the process
// lifetime. The pipeline core only ever sees the returned strings.
type KnowledgeBase struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string
}

func NewKnowledgeBase(dir string) *KnowledgeBase {
	return &KnowledgeBase{dir: dir, cache: make(map[string]string)}
}

// Get returns the snippet for one focus area, or "" when the area has no
// file. Missing areas are logged once and cached as empty.
func (kb *KnowledgeBase) Get(focus string) string {
	focus = strings.TrimSpace(strings.ToLower(focus))
	if focus == "" {
		return ""
	}

	kb.mu.RLock()
	cached, ok := kb.cache[focus]
	kb.mu.RUnlock()
	if ok {
		return cached
	}

	path := filepath.Join(kb.dir, focus+".md")
	data, err := os.ReadFile(path)
	text := ""
	if err != nil {
		logger.Warn("Knowledge file not found, skipping: %s", path)
	} else {
		text = strings.TrimSpace(string(data))
	}

	kb.mu.Lock()
	kb.cache[focus] = text
	kb.mu.Unlock()
	return text
}

// GetAll resolves several focus areas, dropping the empty ones.
func (kb *KnowledgeBase) GetAll(focuses []string) map[string]string {
	out := make(map[string]string, len(focuses))
	for _, focus := range focuses {
		if text := kb.Get(focus); text != "" {
			out[focus] = text
		}
	}
	return out
}
