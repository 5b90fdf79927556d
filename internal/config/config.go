// Package config provides configuration loading and structs for kotae.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Index      IndexConfig      `yaml:"index"`
	Repository RepositoryConfig `yaml:"repository"`
	Watch      WatchConfig      `yaml:"watch"`
}

// LogConfig holds logger settings. Debug mode overrides Level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	// RequestTimeout bounds a whole request. Zero leaves requests unbounded,
	// which is what generation against a slow local model usually needs.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds on-disk locations. Empty paths are derived from DataDir.
type StorageConfig struct {
	DataDir          string `yaml:"data_dir"`
	IndexPath        string `yaml:"index_path"`
	LedgerPath       string `yaml:"ledger_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
	WorkspaceDir     string `yaml:"workspace_dir"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Provider is one of ollama, openai, onnx, hash.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// ModelPath, LibraryPath and MaxTokens apply to the onnx provider.
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// GenerationConfig selects and configures the generative model.
type GenerationConfig struct {
	// Provider is one of ollama, openai.
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	Temperature     float32 `yaml:"temperature"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

// ChunkingConfig holds the chunk window, in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig holds nearest-neighbour settings.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MaxK          int     `yaml:"max_k"`
	Hybrid        bool    `yaml:"hybrid"`
	KeywordWeight float64 `yaml:"keyword_weight"`
}

// IndexConfig selects the vector index backend: memory or sqlite-vec.
type IndexConfig struct {
	Type string `yaml:"type"`
}

// RepositoryConfig holds repository ingestion settings.
type RepositoryConfig struct {
	Branch       string   `yaml:"branch"`
	Depth        int      `yaml:"depth"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	IgnoreDirs   []string `yaml:"ignore_dirs"`
	// Extensions limits which files are ingested; empty means every text file.
	Extensions []string `yaml:"extensions"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string      `yaml:"directories"`
	Extensions  []string      `yaml:"extensions"`
	Recursive   *bool         `yaml:"recursive"`
	Debounce    time.Duration `yaml:"debounce"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, expands paths and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

// LoadOrDefault behaves like Load but falls back to defaults, with paths relative
// to the working directory, when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return finish(&Config{}, cwd)
}

// LoadEnvFiles loads .env style files into the process environment. Missing files
// are ignored; existing variables are not overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

func finish(cfg *Config, configDir string) (*Config, error) {
	ApplyEnv(cfg)
	ApplyDefaults(cfg)

	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	derive := func(p *string, rel string) {
		if *p == "" {
			*p = filepath.Join(cfg.Storage.DataDir, rel)
			return
		}
		*p = expandPath(*p, configDir)
	}
	indexFile := "vectors.gob"
	if cfg.Index.Type == IndexSQLiteVec {
		indexFile = "vectors.db"
	}
	derive(&cfg.Storage.IndexPath, filepath.Join("index", indexFile))
	derive(&cfg.Storage.LedgerPath, filepath.Join("db", "ingestions.db"))
	derive(&cfg.Storage.KeywordIndexPath, filepath.Join("index", "bleve"))
	derive(&cfg.Storage.WorkspaceDir, "workspaces")
	derive(&cfg.Embedding.ModelPath, filepath.Join("models", "all-MiniLM-L6-v2.onnx"))
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies the environment overrides understood by kotae.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("KOTAE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Debug = true
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		if cfg.Generation.Provider == "" || cfg.Generation.Provider == ProviderOllama {
			cfg.Generation.BaseURL = v
		}
		if cfg.Embedding.Provider == "" || cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.BaseURL = v
		}
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		if cfg.Generation.Provider == "" || cfg.Generation.Provider == ProviderOllama {
			cfg.Generation.Model = v
		}
	}
	if v := os.Getenv("OLLAMA_EMBED_MODEL"); v != "" {
		if cfg.Embedding.Provider == "" || cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.Model = v
		}
	}
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", models.ErrInvalidConfiguration, c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d",
			models.ErrInvalidConfiguration, c.Chunking.Size, c.Chunking.Overlap)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderONNX, ProviderHash:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", models.ErrInvalidConfiguration, c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown generation.provider %q", models.ErrInvalidConfiguration, c.Generation.Provider)
	}
	switch c.Index.Type {
	case IndexMemory, IndexSQLiteVec:
	default:
		return fmt.Errorf("%w: unknown index.type %q", models.ErrInvalidConfiguration, c.Index.Type)
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.TopK > c.Retrieval.MaxK {
		return fmt.Errorf("%w: retrieval.top_k must be in [1, %d], got %d",
			models.ErrInvalidConfiguration, c.Retrieval.MaxK, c.Retrieval.TopK)
	}
	if c.Retrieval.KeywordWeight < 0 || c.Retrieval.KeywordWeight > 1 {
		return fmt.Errorf("%w: retrieval.keyword_weight must be in [0, 1]", models.ErrInvalidConfiguration)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
