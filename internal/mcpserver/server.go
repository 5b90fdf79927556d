// Package mcpserver exposes retrieval, generation and ingestion as MCP tools
// so editor agents can use the same index as the HTTP API.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Name is the server name reported during the MCP handshake.
const Name = "kotae"

// Ingester is the write path the tools need.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*models.IngestResult, error)
	IngestRepository(ctx context.Context, url, branch string) (*models.RepositoryResult, error)
}

// Answerer is the read path the tools need.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
}

// Options configure the MCP tools.
type Options struct {
	Version  string
	DefaultK int
	MaxK     int
	Logger   *zap.Logger
}

var readOnly = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var appends = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(false),
	OpenWorldHint:   mcp.ToBoolPtr(true),
}

// New builds an MCP server with the kotae tools registered.
func New(ing Ingester, ans Answerer, opts Options) *server.MCPServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = 4
	}
	if opts.MaxK < opts.DefaultK {
		opts.MaxK = opts.DefaultK
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := server.NewMCPServer(Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Answer questions from ingested documents and repositories. "+
			"Use retrieve to inspect context, generate for a grounded answer."),
	)
	h := &handlers{ing: ing, ans: ans, opts: opts}
	s.AddTool(generateTool(), h.generate)
	s.AddTool(retrieveTool(), h.retrieve)
	s.AddTool(addRepositoryTool(), h.addRepository)
	s.AddTool(ingestFileTool(), h.ingestFile)
	return s
}

// ServeStdio runs s over stdin and stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func generateTool() mcp.Tool {
	return mcp.NewTool("generate",
		mcp.WithDescription("Answer a question using the most relevant ingested chunks as context."),
		mcp.WithToolAnnotation(readOnly),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The question or instruction to answer"),
		),
	)
}

func retrieveTool() mcp.Tool {
	return mcp.NewTool("retrieve",
		mcp.WithDescription("Return the ingested chunks most similar to a query, best first."),
		mcp.WithToolAnnotation(readOnly),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return"),
		),
	)
}

func addRepositoryTool() mcp.Tool {
	return mcp.NewTool("add_repository",
		mcp.WithDescription("Clone a git repository and ingest its text files."),
		mcp.WithToolAnnotation(appends),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Clone URL, e.g. https://github.com/owner/repo.git"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to clone; the remote default branch when omitted"),
		),
	)
}

func ingestFileTool() mcp.Tool {
	return mcp.NewTool("ingest_file",
		mcp.WithDescription("Ingest a local file (text, markdown, source, PDF or office document)."),
		mcp.WithToolAnnotation(appends),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the file on the server's filesystem"),
		),
	)
}

type handlers struct {
	ing  Ingester
	ans  Answerer
	opts Options
}

func (h *handlers) generate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := models.GenerateRequest{Prompt: req.GetString("prompt", "")}
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := h.ans.Answer(ctx, r.Prompt)
	if err != nil {
		h.opts.Logger.Warn("mcp generate failed", zap.Error(err))
		return mcp.NewToolResultErrorFromErr("generation failed", err), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (h *handlers) retrieve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := models.RetrieveRequest{
		Query: req.GetString("query", ""),
		K:     req.GetInt("k", 0),
	}
	if err := r.Validate(h.opts.DefaultK, h.opts.MaxK); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunks, err := h.ans.Retrieve(ctx, r.Query, r.K)
	if err != nil {
		h.opts.Logger.Warn("mcp retrieve failed", zap.Error(err))
		return mcp.NewToolResultErrorFromErr("retrieval failed", err), nil
	}
	return mcp.NewToolResultText(formatChunks(r.Query, chunks)), nil
}

func (h *handlers) addRepository(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := models.AddRepositoryRequest{
		URL:    req.GetString("url", ""),
		Branch: req.GetString("branch", ""),
	}
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := h.ing.IngestRepository(ctx, r.URL, r.Branch)
	if err != nil {
		h.opts.Logger.Warn("mcp add_repository failed", zap.String("url", r.URL), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("repository ingest failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ingested %s: %d files, %d skipped, %d chunks added.",
		res.URL, res.FilesIngested, res.FilesSkipped, res.ChunksAdded)), nil
}

func (h *handlers) ingestFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	res, err := h.ing.IngestFile(ctx, path)
	if err != nil {
		h.opts.Logger.Warn("mcp ingest_file failed", zap.String("path", path), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("ingest failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ingested %s: %d chunks added (document %s).",
		res.Source, res.ChunksAdded, res.DocumentID)), nil
}

func formatChunks(query string, chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q (%d chunks)\n\n", query, len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(&sb, "### %d. `%s` (score %.3f)\n\n%s\n\n", i+1, c.Source, c.Score, c.Text)
	}
	return sb.String()
}
