package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/sashabaranov/go-openai"
)

// ChatOptions configures a ChatGenerator.
type ChatOptions struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	// MaxTokens caps the completion length; zero leaves it to the server.
	MaxTokens  int
	HTTPClient *http.Client
}

// ChatGenerator sends the prompt as a single user message to an
// OpenAI-compatible /chat/completions endpoint.
type ChatGenerator struct {
	client *openai.Client
	opts   ChatOptions
}

// NewChatGenerator returns a generator for opts.
func NewChatGenerator(opts ChatOptions) *ChatGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &ChatGenerator{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Name returns "<provider>/<model>".
func (g *ChatGenerator) Name() string { return g.opts.Provider + "/" + g.opts.Model }

// Generate returns the first choice's message content. Transport failures and
// server errors are reported as models.ErrModelUnavailable.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s: %s", models.ErrModelUnavailable, g.Name(), describe(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", models.ErrModelUnavailable, g.Name())
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describe extracts the server's message from go-openai errors.
func describe(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
