package config

import "time"

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
	ProviderHash   = "hash"

	IndexMemory    = "memory"
	IndexSQLiteVec = "sqlite-vec"

	DefaultOllamaBaseURL = "http://localhost:11434"
)

// DefaultIgnoreDirs are never walked during repository ingestion.
var DefaultIgnoreDirs = []string{
	".git", ".hg", ".svn", "node_modules", "vendor", "__pycache__",
	".venv", "venv", "dist", "build", "target", ".idea", ".vscode",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = ".kotae"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOllama
	}
	switch cfg.Embedding.Provider {
	case ProviderOllama:
		if cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = DefaultOllamaBaseURL
		}
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "nomic-embed-text"
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = 768
		}
	case ProviderOpenAI:
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-3-small"
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = 1536
		}
		if cfg.Embedding.APIKeyEnv == "" {
			cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		}
	case ProviderONNX, ProviderHash:
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "all-MiniLM-L6-v2"
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = ProviderOllama
	}
	switch cfg.Generation.Provider {
	case ProviderOllama:
		if cfg.Generation.BaseURL == "" {
			cfg.Generation.BaseURL = DefaultOllamaBaseURL
		}
		if cfg.Generation.Model == "" {
			cfg.Generation.Model = "llama3.2"
		}
	case ProviderOpenAI:
		if cfg.Generation.Model == "" {
			cfg.Generation.Model = "gpt-4o-mini"
		}
		if cfg.Generation.APIKeyEnv == "" {
			cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.Generation.MaxContextChars == 0 {
		cfg.Generation.MaxContextChars = 12000
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = cfg.Chunking.Size / 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	if cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.3
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = IndexMemory
	}

	if cfg.Repository.Depth == 0 {
		cfg.Repository.Depth = 1
	}
	if cfg.Repository.MaxFileBytes == 0 {
		cfg.Repository.MaxFileBytes = 1 << 20
	}
	if cfg.Repository.IgnoreDirs == nil {
		cfg.Repository.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
