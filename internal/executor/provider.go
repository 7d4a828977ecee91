package executor

import (
	"context"
	"fmt"
)

// CompletionRequest is one outbound call to a completion service: a system
// text block plus a single user message.
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// CompletionResponse is a batch-mode completion. UsageReported is true when
// token counts come from the provider rather than an estimate.
type CompletionResponse struct {
	Content       string
	RequestID     string
	Model         string
	InputTokens   int
	OutputTokens  int
	UsageReported bool
}

// StopInfo is the terminal metadata of a streamed completion. Providers may
// leave fields empty; the controller synthesizes what is missing.
type StopInfo struct {
	RequestID    string
	OutputTokens int
}

// Provider abstracts a completion service. Stream implementations must
// deliver fragments in provider order, one onFragment call per fragment.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Stream(ctx context.Context, req CompletionRequest, onFragment func(text string)) (StopInfo, error)
}

// ProviderError marks an error the completion service itself reported. The
// controller downgrades these to a degraded result; any other error (network
// or transport failure) is re-raised untouched.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
