package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/promptflow/internal/logger"
	"github.com/kayz/promptflow/internal/promptgen"
)

// degradedScore is the fixed quality score of a degraded result.
const degradedScore = 0.1

const degradedContent = "I apologize, but I was unable to complete this request. " +
	"The generation service reported an error; please try again shortly."

// ChunkRelay receives streaming fragments for live forwarding. Calls are
// fire-and-forget: the relay exerts no backpressure on the controller.
type ChunkRelay interface {
	SendChunk(channelID, text string)
}

// Options are per-call completion settings.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// Timeout bounds the completion call. Zero leaves it unbounded.
	Timeout time.Duration
}

// Request is one execution attempt against a validated prompt pair.
type Request struct {
	AgentID string
	Prompt  promptgen.GeneratedPrompt

	// Stream selects incremental mode. ChannelID, when set, additionally
	// forwards each fragment to the relay.
	Stream    bool
	ChannelID string
}

// Controller issues completion calls under a per-agent rate limit and always
// hands back a well-formed Result for provider-reported failures. Transport
// failures and rate limiting surface as errors.
type Controller struct {
	provider Provider
	limiter  *RateLimiter
	relay    ChunkRelay
	defaults Options
}

func NewController(provider Provider, limiter *RateLimiter, relay ChunkRelay, defaults Options) *Controller {
	return &Controller{
		provider: provider,
		limiter:  limiter,
		relay:    relay,
		defaults: defaults,
	}
}

// Execute runs one completion call. The returned Result carries no quality
// scoring except on the degraded path; scoring is the caller's next step.
func (c *Controller) Execute(ctx context.Context, req Request, opts Options) (Result, error) {
	if err := c.limiter.Acquire(req.AgentID); err != nil {
		return Result{}, err
	}

	opts = c.withDefaults(opts)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	completion := CompletionRequest{
		System:      req.Prompt.System,
		User:        req.Prompt.User,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	start := time.Now()
	var result Result
	var err error
	if req.Stream {
		result, err = c.executeStream(ctx, req, completion)
	} else {
		result, err = c.executeBatch(ctx, completion)
	}
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			logger.Warn("Provider %s failed, returning degraded result: %v", c.provider.Name(), provErr)
			return c.degraded(provErr, opts, elapsed), nil
		}
		// Transport failure: no response to degrade from, re-raise.
		return Result{}, err
	}

	c.limiter.Record(req.AgentID)
	snapshot := c.limiter.Snapshot(req.AgentID)

	result.ProcessingTimeMs = elapsed
	result.Metadata.Model = opts.Model
	result.Metadata.Temperature = opts.Temperature
	result.Metadata.MaxTokens = opts.MaxTokens
	result.Metadata.ResponseTimeMs = elapsed
	result.Metadata.RateLimit = &snapshot
	return result, nil
}

func (c *Controller) executeBatch(ctx context.Context, completion CompletionRequest) (Result, error) {
	resp, err := c.provider.Complete(ctx, completion)
	if err != nil {
		return Result{}, err
	}

	tokens := resp.OutputTokens
	if !resp.UsageReported {
		tokens = promptgen.EstimateTokens(resp.Content)
	}

	requestID := resp.RequestID
	if requestID == "" {
		requestID = "req-" + uuid.NewString()
	}

	return Result{
		Content:    resp.Content,
		TokensUsed: tokens,
		Metadata: ResultMetadata{
			ActualTokens: resp.InputTokens + resp.OutputTokens,
			RequestID:    requestID,
		},
	}, nil
}

func (c *Controller) executeStream(ctx context.Context, req Request, completion CompletionRequest) (Result, error) {
	var content strings.Builder

	stop, err := c.provider.Stream(ctx, completion, func(text string) {
		content.WriteString(text)
		if req.ChannelID != "" && c.relay != nil {
			c.relay.SendChunk(req.ChannelID, text)
		}
	})
	if err != nil {
		return Result{}, err
	}

	// Provider usage is unavailable mid-stream, so streaming mode always
	// estimates from the aggregated text.
	text := content.String()
	tokens := promptgen.EstimateTokens(text)

	requestID := stop.RequestID
	if requestID == "" {
		// Terminal metadata was absent; synthesize a minimal record so the
		// result shape stays complete.
		requestID = "stream-" + uuid.NewString()
	}

	return Result{
		Content:    text,
		TokensUsed: tokens,
		Metadata: ResultMetadata{
			ActualTokens: stop.OutputTokens,
			RequestID:    requestID,
		},
	}, nil
}

// degraded builds the stand-in result for a provider-reported failure.
// Upstream stages always receive a structurally valid object.
func (c *Controller) degraded(provErr *ProviderError, opts Options, elapsedMs int64) Result {
	return Result{
		Content:          degradedContent,
		QualityScore:     degradedScore,
		TokensUsed:       0,
		ProcessingTimeMs: elapsedMs,
		Metadata: ResultMetadata{
			Model:          opts.Model,
			Temperature:    opts.Temperature,
			MaxTokens:      opts.MaxTokens,
			ResponseTimeMs: elapsedMs,
			RequestID:      "error",
			Error:          provErr.Error(),
		},
	}
}

func (c *Controller) withDefaults(opts Options) Options {
	if opts.Model == "" {
		opts.Model = c.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	if opts.Timeout == 0 {
		opts.Timeout = c.defaults.Timeout
	}
	return opts
}
