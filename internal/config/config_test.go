package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_BASE_URL", "OLLAMA_MODEL", "OLLAMA_EMBED_MODEL", "KOTAE_DEBUG"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	_, path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 90s
storage:
  data_dir: "./data"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 90*time.Second {
		t.Errorf("request_timeout = %v, want 90s", cfg.Server.RequestTimeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	_, path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking = %+v, want size 1000 overlap 200", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("top_k = %d, want 4", cfg.Retrieval.TopK)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Generation.Provider != ProviderOllama || cfg.Generation.BaseURL != DefaultOllamaBaseURL {
		t.Errorf("generation = %+v", cfg.Generation)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("ollama embedding dimensions = %d, want 768", cfg.Embedding.Dimensions)
	}
	if cfg.Index.Type != IndexMemory || filepath.Base(cfg.Storage.IndexPath) != "vectors.gob" {
		t.Errorf("index = %s at %s", cfg.Index.Type, cfg.Storage.IndexPath)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir, path := writeConfig(t, `
storage:
  data_dir: "./data"
  ledger_path: "./db/ledger.db"
watch:
  directories: ["./inbox"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %q, want %q", cfg.Storage.DataDir, want)
	}
	if want := filepath.Join(dir, "db", "ledger.db"); cfg.Storage.LedgerPath != want {
		t.Errorf("ledger_path = %q, want %q", cfg.Storage.LedgerPath, want)
	}
	if want := filepath.Join(dir, "data", "workspaces"); cfg.Storage.WorkspaceDir != want {
		t.Errorf("workspace_dir = %q, want %q", cfg.Storage.WorkspaceDir, want)
	}
	if want := filepath.Join(dir, "inbox"); len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != want {
		t.Errorf("watch.directories = %v, want [%s]", cfg.Watch.Directories, want)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("watch should default to recursive")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "codellama")
	_, path := writeConfig(t, "storage:\n  data_dir: ./data\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.BaseURL != "http://gpu-box:11434" || cfg.Embedding.BaseURL != "http://gpu-box:11434" {
		t.Errorf("base urls = %q / %q", cfg.Generation.BaseURL, cfg.Embedding.BaseURL)
	}
	if cfg.Generation.Model != "codellama" {
		t.Errorf("generation model = %q, want codellama", cfg.Generation.Model)
	}
}

func TestLoad_envDoesNotOverrideOpenAIProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_MODEL", "codellama")
	_, path := writeConfig(t, `
generation:
  provider: openai
  model: gpt-4o
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.Model != "gpt-4o" {
		t.Errorf("generation model = %q, want gpt-4o", cfg.Generation.Model)
	}
	if cfg.Generation.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("api_key_env = %q", cfg.Generation.APIKeyEnv)
	}
}

func TestLoad_invalidChunking(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"overlap equals size", "chunking:\n  size: 100\n  overlap: 100\n"},
		{"overlap exceeds size", "chunking:\n  size: 100\n  overlap: 150\n"},
		{"negative size", "chunking:\n  size: -1\n  overlap: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := writeConfig(t, tt.content)
			_, err := Load(path)
			if !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("Load() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestLoad_unknownProvider(t *testing.T) {
	clearEnv(t)
	_, path := writeConfig(t, "embedding:\n  provider: word2vec\n")
	if _, err := Load(path); !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("Load() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLoadOrDefault_missingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected defaults, got chunk size %d", cfg.Chunking.Size)
	}
}

func TestLoad_parseError(t *testing.T) {
	_, path := writeConfig(t, "server: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("KOTAE_TEST_ENV_VALUE=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KOTAE_TEST_ENV_VALUE", "")
	os.Unsetenv("KOTAE_TEST_ENV_VALUE")
	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("KOTAE_TEST_ENV_VALUE"); got != "from-dotenv" {
		t.Errorf("KOTAE_TEST_ENV_VALUE = %q, want from-dotenv", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := &Config{Storage: StorageConfig{DataDir: dir}}
	ApplyDefaults(cfg)
	cfg.Retrieval.TopK = 6
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieval.TopK != 6 {
		t.Errorf("top_k = %d, want 6", loaded.Retrieval.TopK)
	}
}
