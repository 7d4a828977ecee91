package executor

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RateLimitError is returned when an agent identity has exhausted its call
// window. It is raised before any external call and is not a system fault;
// callers retry after RetryAfterSeconds.
type RateLimitError struct {
	AgentID           string
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for agent %s, retry in %ds", e.AgentID, e.RetryAfterSeconds)
}

// RateLimitSnapshot is a point-in-time view of one identity's window.
type RateLimitSnapshot struct {
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
	Remaining int       `json:"remaining"`
}

type rateRecord struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter enforces a sliding-window call cap per agent identity. Each
// record carries its own lock so different identities never contend; the
// outer lock only guards map access.
type RateLimiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	records map[string]*rateRecord

	now func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per window for each
// agent identity.
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		limit:   limit,
		records: make(map[string]*rateRecord),
		now:     time.Now,
	}
}

func (l *RateLimiter) record(agentID string) *rateRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[agentID]
	if !ok {
		r = &rateRecord{resetAt: l.now().Add(l.window)}
		l.records[agentID] = r
	}
	return r
}

// Acquire checks whether agentID may place a call right now. It does not
// count the call; completed calls are counted via Record, so an in-flight
// request does not consume the budget until it finishes.
func (l *RateLimiter) Acquire(agentID string) error {
	r := l.record(agentID)
	r.mu.Lock()
	defer r.mu.Unlock()

	now := l.now()
	if !now.Before(r.resetAt) {
		r.count = 0
		r.resetAt = now.Add(l.window)
	}
	if r.count >= l.limit {
		wait := int(math.Ceil(r.resetAt.Sub(now).Seconds()))
		if wait < 1 {
			wait = 1
		}
		return &RateLimitError{AgentID: agentID, RetryAfterSeconds: wait}
	}
	return nil
}

// Record counts one successfully completed call for agentID.
func (l *RateLimiter) Record(agentID string) {
	r := l.record(agentID)
	r.mu.Lock()
	defer r.mu.Unlock()

	now := l.now()
	if !now.Before(r.resetAt) {
		r.count = 0
		r.resetAt = now.Add(l.window)
	}
	r.count++
}

// Snapshot reports the current window state for agentID.
func (l *RateLimiter) Snapshot(agentID string) RateLimitSnapshot {
	r := l.record(agentID)
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := l.limit - r.count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitSnapshot{
		Count:     r.count,
		Limit:     l.limit,
		ResetAt:   r.resetAt,
		Remaining: remaining,
	}
}

// Sweep drops every record whose window has expired and returns how many
// were removed. Safe to run from a maintenance schedule at any time.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for agentID, r := range l.records {
		r.mu.Lock()
		expired := !now.Before(r.resetAt)
		r.mu.Unlock()
		if expired {
			delete(l.records, agentID)
			removed++
		}
	}
	return removed
}
