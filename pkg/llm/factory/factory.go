package factory

import (
	"context"
	"fmt"

	"restaurant-booking-be/pkg/llm"
	"restaurant-booking-be/pkg/llm/gemini"
	"restaurant-booking-be/pkg/llm/ollama"
	"restaurant-booking-be/pkg/llm/openai"
)

type ProviderConfig struct {
	Type    string
	Model   string
	BaseURL string
	APIKey  string
}

// NewLLMProvider returns (nil, nil) for the "keyword" provider: the caller then
// runs without a language model.
func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "keyword", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
