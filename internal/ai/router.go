package ai

import (
	"fmt"
	"sync"
	"time"
)

// ModelRouter tracks the currently selected model and per-model health.
// A model that fails enters a cooldown window during which switching to it
// is refused unless forced.
type ModelRouter struct {
	registry     *Registry
	currentModel *ModelConfig
	stats        map[string]*ModelStats
	cooldowns    map[string]time.Time
	cooldownTime time.Duration
	mu           sync.RWMutex
}

type ModelStats struct {
	successCount int
	failureCount int
	lastSuccess  time.Time
	lastFailure  time.Time
}

func NewModelRouter(registry *Registry, cooldownTime time.Duration) *ModelRouter {
	r := &ModelRouter{
		registry:     registry,
		stats:        make(map[string]*ModelStats),
		cooldowns:    make(map[string]time.Time),
		cooldownTime: cooldownTime,
	}
	r.currentModel = registry.GetDefaultModel()
	return r
}

func (r *ModelRouter) ListModels() []*ModelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry.ListModels()
}

func (r *ModelRouter) GetCurrentModel() *ModelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentModel
}

func (r *ModelRouter) SwitchToModel(name string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, ok := r.registry.GetModel(name)
	if !ok {
		return fmt.Errorf("model not found: %s", name)
	}
	if !force && r.inCooldown(name) {
		return fmt.Errorf("model %s is in cooldown", name)
	}

	r.currentModel = model
	return nil
}

func (r *ModelRouter) RecordSuccess(model *ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.statsFor(model.Name)
	s.successCount++
	s.lastSuccess = time.Now()
}

func (r *ModelRouter) RecordFailure(model *ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.statsFor(model.Name)
	s.failureCount++
	s.lastFailure = time.Now()
	r.cooldowns[model.Name] = time.Now().Add(r.cooldownTime)
}

// Failover switches to the first declared model not in cooldown.
func (r *ModelRouter) Failover() (*ModelConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.registry.ListModels() {
		if r.inCooldown(m.Name) {
			continue
		}
		r.currentModel = m
		return m, nil
	}
	return nil, fmt.Errorf("no available models for failover")
}

func (r *ModelRouter) IsInCooldown(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inCooldown(name)
}

func (r *ModelRouter) inCooldown(name string) bool {
	until, ok := r.cooldowns[name]
	return ok && time.Now().Before(until)
}

func (r *ModelRouter) statsFor(name string) *ModelStats {
	s, ok := r.stats[name]
	if !ok {
		s = &ModelStats{}
		r.stats[name] = s
	}
	return s
}
