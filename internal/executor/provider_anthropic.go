package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements Provider on the Anthropic messages API.
type AnthropicProvider struct {
	client *anthropic.Client
}

func NewAnthropicProvider(apiKey, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(apiKey, opts...)}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) messagesRequest(req CompletionRequest) anthropic.MessagesRequest {
	temperature := req.Temperature
	return anthropic.MessagesRequest{
		Model:       anthropic.Model(req.Model),
		System:      req.System,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(req.User)},
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := p.client.CreateMessages(ctx, p.messagesRequest(req))
	if err != nil {
		return CompletionResponse{}, p.classify(err)
	}

	return CompletionResponse{
		Content:       resp.GetFirstContentText(),
		RequestID:     resp.ID,
		Model:         string(resp.Model),
		InputTokens:   resp.Usage.InputTokens,
		OutputTokens:  resp.Usage.OutputTokens,
		UsageReported: true,
	}, nil
}

func (p *AnthropicProvider) Stream(ctx context.Context, req CompletionRequest, onFragment func(text string)) (StopInfo, error) {
	streamReq := anthropic.MessagesStreamRequest{
		MessagesRequest: p.messagesRequest(req),
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if text := data.Delta.GetText(); text != "" {
				onFragment(text)
			}
		},
	}

	resp, err := p.client.CreateMessagesStream(ctx, streamReq)
	if err != nil {
		return StopInfo{}, p.classify(err)
	}

	return StopInfo{
		RequestID:    resp.ID,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// classify wraps API-reported errors so the controller can downgrade them;
// transport failures pass through untouched.
func (p *AnthropicProvider) classify(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: p.Name(), Err: err}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: p.Name(), Err: err}
	}
	return err
}
