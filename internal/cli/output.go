// Package cli formats kotae command output for terminals and scripts.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s; empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// AnswerOptions control how an answer is rendered.
type AnswerOptions struct {
	// Raw prints the model output unchanged.
	Raw bool
	// Width wraps rendered markdown; zero means 80 columns.
	Width int
	// Style is a glamour style name; empty selects one from the terminal.
	Style string
}

// WriteAnswer writes a generated answer, rendering it as markdown unless raw.
func WriteAnswer(w io.Writer, answer string, opts AnswerOptions) error {
	if opts.Raw {
		_, err := fmt.Fprintln(w, answer)
		return err
	}
	out, err := RenderMarkdown(answer, opts.Width, opts.Style)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// RenderMarkdown renders md for a terminal of the given width.
func RenderMarkdown(md string, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// WriteChunks writes retrieved chunks, best first.
func WriteChunks(w io.Writer, query string, chunks []models.RetrievedChunk, format OutputFormat) error {
	if format == OutputJSON {
		if chunks == nil {
			chunks = []models.RetrievedChunk{}
		}
		return writeJSON(w, map[string]interface{}{"query": query, "chunks": chunks})
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d chunks for %q", len(chunks), query)))
	for i, c := range chunks {
		fmt.Fprintln(w, dimStyle.Render("─────────────────────────────────────────────────────────"))
		fmt.Fprintf(w, "%d. %s  score %.4f (semantic %.4f, keyword %.4f)\n",
			i+1, c.Source, c.Score, c.SemanticScore, c.KeywordScore)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(c.Text, 400))
	}
	return nil
}

// WriteIngestResult reports a single ingested document.
func WriteIngestResult(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, Success(fmt.Sprintf("%s: %d chunks added", res.Source, res.ChunksAdded)))
	return nil
}

// WriteTreeResult reports a directory ingest.
func WriteTreeResult(w io.Writer, root string, res *models.TreeResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, Success(fmt.Sprintf("%s: %d files ingested, %d skipped, %d chunks added",
		root, res.FilesIngested, res.FilesSkipped, res.ChunksAdded)))
	return nil
}

// WriteRepositoryResult reports a repository ingest.
func WriteRepositoryResult(w io.Writer, res *models.RepositoryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	name := res.URL
	if res.Branch != "" {
		name += "@" + res.Branch
	}
	return WriteTreeResult(w, name, &res.TreeResult, OutputText)
}

// Status is the summary printed by the status command.
type Status struct {
	IndexType      string               `json:"index_type"`
	Entries        int                  `json:"entries"`
	Embedder       string               `json:"embedder"`
	Generator      string               `json:"generator"`
	DataDir        string               `json:"data_dir"`
	DiskUsageBytes int64                `json:"disk_usage_bytes"`
	Ingestions     *storage.LedgerStats `json:"ingestions,omitempty"`
}

// WriteStatus writes s in the given format.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintln(w, titleStyle.Render("kotae status"))
	row := func(label, value string) {
		fmt.Fprintln(w, labelStyle.Render(label)+value)
	}
	row("index", fmt.Sprintf("%s (%d entries)", s.IndexType, s.Entries))
	row("embedder", s.Embedder)
	row("generator", s.Generator)
	row("data dir", s.DataDir)
	row("disk usage", FormatBytes(s.DiskUsageBytes))
	if st := s.Ingestions; st != nil {
		row("ingestions", fmt.Sprintf("%d (%d succeeded, %d failed)", st.Total, st.Succeeded, st.Failed))
		row("chunks ingested", fmt.Sprintf("%d", st.ChunksAdded))
	}
	return nil
}

// WriteIngestions lists ledger records, newest first.
func WriteIngestions(w io.Writer, records []*models.IngestionRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []*models.IngestionRecord{}
		}
		return writeJSON(w, records)
	}
	for _, r := range records {
		status := successStyle.Render(string(r.Status))
		if r.Status == models.IngestionFailed {
			status = errorStyle.Render(string(r.Status))
		}
		fmt.Fprintf(w, "%s  %-9s %-11s %4d  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), status, r.Type, r.ChunksAdded, r.Source)
		if r.Error != "" {
			fmt.Fprintln(w, dimStyle.Render("    "+utils.SingleLine(r.Error)))
		}
	}
	return nil
}

// FormatBytes formats n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
