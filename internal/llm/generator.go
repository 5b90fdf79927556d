// Package llm talks to the generative model that turns a prompt into text.
package llm

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Generator produces a completion for a prompt. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns "<provider>/<model>".
	Name() string
}

// New creates the generator configured by cfg.
func New(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama, config.ProviderOpenAI:
		if cfg.Model == "" {
			return nil, fmt.Errorf("%w: generation.model is required", models.ErrInvalidConfiguration)
		}
		return NewChatGenerator(ChatOptions{
			Provider:    cfg.Provider,
			BaseURL:     cfg.OpenAIBaseURL(),
			APIKey:      cfg.APIKey(),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", models.ErrInvalidConfiguration, cfg.Provider)
	}
}
