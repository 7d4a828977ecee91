package ai

import (
	"fmt"

	"github.com/kayz/promptflow/internal/executor"
)

// openAICompatDefaults maps OpenAI-compatible provider types to their base
// URLs when the registry entry leaves base_url empty.
var openAICompatDefaults = map[string]string{
	"openai":      "https://api.openai.com/v1",
	"deepseek":    "https://api.deepseek.com/v1",
	"moonshot":    "https://api.moonshot.cn/v1",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"grok":        "https://api.x.ai/v1",
}

// NewProvider builds an executor.Provider from a registry entry.
func NewProvider(cfg *ProviderConfig) (executor.Provider, error) {
	switch cfg.Type {
	case "claude", "anthropic", "":
		return executor.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL)
	default:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openAICompatDefaults[cfg.Type]
		}
		if baseURL == "" {
			return nil, fmt.Errorf("unknown provider: %s", cfg.Type)
		}
		return executor.NewOpenAIProvider(cfg.APIKey, baseURL)
	}
}
