package config

import (
	"os"
	"strings"
)

// openAIBaseURL returns the OpenAI-compatible API root for a provider. Ollama
// serves it under /v1; an empty base for openai means the public API.
func openAIBaseURL(provider, base string) string {
	base = strings.TrimRight(base, "/")
	if provider == ProviderOllama && !strings.HasSuffix(base, "/v1") {
		return base + "/v1"
	}
	return base
}

// apiKey returns the key from env, or a placeholder for Ollama which ignores it.
func apiKey(provider, env string) string {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if provider == ProviderOllama {
		return "ollama"
	}
	return ""
}

// OpenAIBaseURL returns the OpenAI-compatible endpoint of the embedding provider.
func (c EmbeddingConfig) OpenAIBaseURL() string { return openAIBaseURL(c.Provider, c.BaseURL) }

// APIKey resolves the embedding API key.
func (c EmbeddingConfig) APIKey() string { return apiKey(c.Provider, c.APIKeyEnv) }

// OpenAIBaseURL returns the OpenAI-compatible endpoint of the generation provider.
func (c GenerationConfig) OpenAIBaseURL() string { return openAIBaseURL(c.Provider, c.BaseURL) }

// APIKey resolves the generation API key.
func (c GenerationConfig) APIKey() string { return apiKey(c.Provider, c.APIKeyEnv) }
