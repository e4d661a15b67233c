// Package workspace talks to the workspace file service: full-text search,
// file reads, and batched text edits. The patcher and the import-graph walker
// use it to find and rewrite test sources. A reference server implementation
// over a local directory lives in this package too.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const clientTimeout = 30 * time.Second

// Replacement is one oldString→newString edit within a file.
type Replacement struct {
	OldString string `json:"oldString"`
	NewString string `json:"newString"`
}

// EditResult is the service's answer to a batched edit.
type EditResult struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// Client calls the workspace file service endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientBaseURL overrides the service base URL.
func WithClientBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithClientHTTP overrides the HTTP client.
func WithClientHTTP(h *http.Client) ClientOption {
	return func(c *Client) { c.client = h }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a workspace service client. The base URL comes from
// LOCAL_AI_API_URL when not overridden (the workspace endpoints live on the
// same service as the AI endpoint).
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{Timeout: clientTimeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.baseURL == "" {
		c.baseURL = os.Getenv("LOCAL_AI_API_URL")
	}
	if c.baseURL == "" {
		c.baseURL = "http://localhost:8765"
	}
	return c
}

// Search finds files whose content contains query, scoped to filePattern.
// The service answers with a markdown listing; paths appear as "## <path>"
// headings. Only .py paths are kept, cache artifacts excluded.
func (c *Client) Search(ctx context.Context, query, filePattern string, maxResults int) ([]string, error) {
	payload := map[string]any{
		"query":       query,
		"filePattern": filePattern,
		"maxResults":  maxResults,
	}

	var resp struct {
		Results string `json:"results"`
	}
	if err := c.post(ctx, "/v1/workspace/files/search", payload, &resp); err != nil {
		return nil, fmt.Errorf("workspace: search: %w", err)
	}

	return parseSearchResults(resp.Results), nil
}

// parseSearchResults extracts .py file paths from the markdown listing.
func parseSearchResults(results string) []string {
	if results == "" || strings.Contains(results, "No matches found") {
		return nil
	}

	var paths []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(results, "\n") {
		if !strings.HasPrefix(line, "## ") || !strings.HasSuffix(line, ".py") {
			continue
		}
		p := strings.TrimSpace(line[3:])
		if strings.Contains(p, "__pycache__") || strings.HasSuffix(p, ".pyc") || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

// Read returns the content of a file. A service-level failure (success=false)
// is an error.
func (c *Client) Read(ctx context.Context, filePath string) (string, error) {
	payload := map[string]string{"filePath": filePath}

	var resp struct {
		Success bool   `json:"success"`
		Content string `json:"content"`
	}
	if err := c.post(ctx, "/v1/workspace/files/read", payload, &resp); err != nil {
		return "", fmt.Errorf("workspace: read %s: %w", filePath, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("workspace: read %s: service reported failure", filePath)
	}
	return resp.Content, nil
}

// Edit submits a batch of replacements for one file. The returned result
// reflects the service's confirmation; Success is false unless the service
// applied the whole batch.
func (c *Client) Edit(ctx context.Context, filePath string, replacements []Replacement) (*EditResult, error) {
	payload := map[string]any{
		"filePath":     filePath,
		"replacements": replacements,
	}

	var res EditResult
	if err := c.post(ctx, "/v1/workspace/files/edit", payload, &res); err != nil {
		return nil, fmt.Errorf("workspace: edit %s: %w", filePath, err)
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("workspace: POST", "path", path, "payload_size", len(body))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(b), 300))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
