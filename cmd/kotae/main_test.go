package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeOllama echoes the prompt it receives on the OpenAI-compatible chat endpoint.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": "echo: " + prompt},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupWorkspace(t *testing.T) (dir, configPath string) {
	t.Helper()
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("KOTAE_DEBUG", "")
	dir = t.TempDir()
	llm := fakeOllama(t)
	configPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`log:
  level: error
storage:
  data_dir: ./data
embedding:
  provider: hash
  dimensions: 64
generation:
  provider: ollama
  model: test-model
  base_url: %s
chunking:
  size: 200
  overlap: 40
`, llm.URL)
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	docs := filepath.Join(dir, "docs")
	if err := os.MkdirAll(filepath.Join(docs, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"x.txt":          "The secret value X=42 is stored in the vault.",
		"nested/a.md":    "# Deployment\n\nDeploy with make release.",
		"nested/bin.dat": "\x00\x01\x02",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(docs, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir, configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String() + errOut.String(), err
}

func TestCLI_ingestRetrieveAsk(t *testing.T) {
	dir, cfg := setupWorkspace(t)

	out, err := runCLI(t, "ingest", "--config", cfg, "-o", "json", filepath.Join(dir, "docs", "x.txt"))
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	var ingested struct {
		ChunksAdded int    `json:"chunks_added"`
		DocumentID  string `json:"document_id"`
	}
	if err := json.Unmarshal([]byte(out), &ingested); err != nil {
		t.Fatalf("ingest output is not JSON: %v\n%s", err, out)
	}
	if ingested.ChunksAdded != 1 || ingested.DocumentID == "" {
		t.Errorf("ingest result = %+v", ingested)
	}

	out, err = runCLI(t, "retrieve", "--config", cfg, "-k", "2", "what", "is", "X")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !strings.Contains(out, "X=42") {
		t.Errorf("retrieve output missing chunk:\n%s", out)
	}

	out, err = runCLI(t, "ask", "--config", cfg, "--raw", "What is X?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.HasPrefix(out, "echo: ") || !strings.Contains(out, "X=42") || !strings.Contains(out, "What is X?") {
		t.Errorf("ask output should echo a prompt with context and question:\n%s", out)
	}

	out, err = runCLI(t, "status", "--config", cfg, "-o", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status struct {
		IndexType  string `json:"index_type"`
		Entries    int    `json:"entries"`
		Embedder   string `json:"embedder"`
		Ingestions struct {
			Total int `json:"total"`
		} `json:"ingestions"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if status.IndexType != "memory" || status.Entries != 1 || status.Ingestions.Total != 1 {
		t.Errorf("status = %+v", status)
	}
	if status.Embedder != "hash" {
		t.Errorf("embedder = %q", status.Embedder)
	}
}

func TestCLI_ingestDirectory(t *testing.T) {
	dir, cfg := setupWorkspace(t)

	out, err := runCLI(t, "ingest", "--config", cfg, "-o", "json", filepath.Join(dir, "docs"))
	if err != nil {
		t.Fatalf("ingest dir: %v\n%s", err, out)
	}
	var res struct {
		FilesIngested int `json:"files_ingested"`
		FilesSkipped  int `json:"files_skipped"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, out)
	}
	if res.FilesIngested != 2 || res.FilesSkipped != 1 {
		t.Errorf("tree result = %+v", res)
	}

	out, err = runCLI(t, "ingestions", "--config", cfg, "-o", "json")
	if err != nil {
		t.Fatalf("ingestions: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, out)
	}
	if len(records) != 3 {
		t.Errorf("ledger has %d records, want one per file", len(records))
	}
}

func TestCLI_errors(t *testing.T) {
	dir, cfg := setupWorkspace(t)

	if _, err := runCLI(t, "ingest", "--config", cfg, filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("ingest of missing file should fail")
	}
	if _, err := runCLI(t, "ingest", "--config", cfg); err == nil {
		t.Error("ingest without args should fail")
	}
	if _, err := runCLI(t, "status", "--config", cfg, "-o", "yaml"); err == nil {
		t.Error("unknown output format should fail")
	}
	if _, err := runCLI(t, "add-repo", "--config", cfg, "file://"+filepath.Join(dir, "no-such-repo")); err == nil {
		t.Error("add-repo of missing repository should fail")
	}
}

func TestCLI_version(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "kotae "+version {
		t.Errorf("version output = %q", out)
	}
}
