package models

import (
	"fmt"
	"net/url"
	"strings"
)

// GenerateRequest is the body of a generation request.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Validate rejects blank prompts.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}

// RetrieveRequest asks for the chunks most similar to Query.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate rejects blank queries and clamps K to [1, maxK]; zero K becomes defaultK.
func (r *RetrieveRequest) Validate(defaultK, maxK int) error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.K <= 0 {
		r.K = defaultK
	}
	if r.K > maxK {
		r.K = maxK
	}
	return nil
}

// AddRepositoryRequest asks for a remote repository to be ingested.
type AddRepositoryRequest struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
}

// Validate accepts http(s), ssh, git and file URLs and scp-style git remotes.
func (r *AddRepositoryRequest) Validate() error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return fmt.Errorf("url cannot be empty")
	}
	r.URL = raw
	if strings.HasPrefix(raw, "git@") && strings.Contains(raw, ":") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git", "file":
		return nil
	default:
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}
