package pipeline

import (
	"context"
	"fmt"

	"github.com/oukeidos/jsontp/internal/gemini"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/oukeidos/jsontp/internal/openai"
	"github.com/oukeidos/jsontp/internal/translator"
)

// newProvider builds the configured provider behind a circuit breaker. The
// returned close function must be called when the run ends.
func newProvider(ctx context.Context, cfg Config) (translator.Provider, func(), error) {
	if cfg.Client != nil {
		return cfg.Client, func() {}, nil
	}
	breaker := translator.BreakerOptions{
		ConsecutiveFailures: cfg.BreakerFailures,
		OpenTimeout:         cfg.BreakerTimeout,
	}
	switch cfg.Provider {
	case metadata.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return translator.WithBreaker("gemini", client, breaker), func() { client.Close() }, nil
	case metadata.ProviderOpenAI:
		client := openai.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		return translator.WithBreaker("openai", client, breaker), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
