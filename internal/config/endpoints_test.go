package config

import "testing"

func TestOpenAIBaseURL(t *testing.T) {
	tests := []struct {
		provider, base, want string
	}{
		{ProviderOllama, "http://localhost:11434", "http://localhost:11434/v1"},
		{ProviderOllama, "http://localhost:11434/", "http://localhost:11434/v1"},
		{ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{ProviderOpenAI, "", ""},
		{ProviderOpenAI, "https://llm.internal/v1/", "https://llm.internal/v1"},
	}
	for _, tt := range tests {
		got := GenerationConfig{Provider: tt.provider, BaseURL: tt.base}.OpenAIBaseURL()
		if got != tt.want {
			t.Errorf("OpenAIBaseURL(%s, %q) = %q, want %q", tt.provider, tt.base, got, tt.want)
		}
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("KOTAE_TEST_KEY", "sk-test")
	if got := (EmbeddingConfig{Provider: ProviderOpenAI, APIKeyEnv: "KOTAE_TEST_KEY"}).APIKey(); got != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", got)
	}
	if got := (EmbeddingConfig{Provider: ProviderOllama}).APIKey(); got != "ollama" {
		t.Errorf("ollama APIKey = %q, want placeholder", got)
	}
	t.Setenv("KOTAE_EMPTY_KEY", "")
	if got := (GenerationConfig{Provider: ProviderOpenAI, APIKeyEnv: "KOTAE_EMPTY_KEY"}).APIKey(); got != "" {
		t.Errorf("APIKey = %q, want empty", got)
	}
}
