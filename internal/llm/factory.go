package llm

import (
	"fmt"

	"github.com/avvvet/voicenav/internal/config"
)

// NewProvider builds the backend named by cfg. It returns (nil, nil) when
// no model is configured; callers then run rule-based only.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if !cfg.ModelConfigured() {
		return nil, nil
	}

	var (
		p   *LangChainProvider
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case config.ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case config.ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
