package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8765"
	defaultTimeout = 30 * time.Second

	suggestTemperature = 0.3
	suggestMaxTokens   = 500
)

// chatMessage is one entry in a chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse carries the single field we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Local is a Provider backed by a local AI service.
//
// Availability is sticky: a transport failure or a 503-class response marks
// the provider unavailable and no further network attempts are made through
// Available. All calls are expected on a single goroutine; there is no
// internal locking.
type Local struct {
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
	available *bool // nil until first probe or failure
}

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithBaseURL overrides the service base URL.
func WithBaseURL(u string) LocalOption {
	return func(l *Local) { l.baseURL = u }
}

// WithHTTPClient overrides the HTTP client (mainly for tests).
func WithHTTPClient(c *http.Client) LocalOption {
	return func(l *Local) { l.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal creates a provider for the local AI service. The base URL comes
// from LOCAL_AI_API_URL when not overridden, defaulting to localhost:8765.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		client: &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.baseURL == "" {
		l.baseURL = os.Getenv("LOCAL_AI_API_URL")
	}
	if l.baseURL == "" {
		l.baseURL = defaultBaseURL
	}
	return l
}

// BaseURL returns the configured service base URL.
func (l *Local) BaseURL() string { return l.baseURL }

// Available probes the chat endpoint once with a trivial payload and caches
// the answer. A 200 or 400 both count as available: either proves the
// endpoint is reachable and speaks the protocol. (Accepting 400 conflates
// "reachable" with "working", but callers depend on that behaviour.)
func (l *Local) Available(ctx context.Context) bool {
	if l.available != nil {
		return *l.available
	}

	req := chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: "test"}},
		MaxTokens: 1,
	}
	status, _, err := l.post(ctx, req)
	if err != nil {
		l.logger.Info("suggest: local AI service not available",
			"url", l.baseURL, "error", err)
		l.setAvailable(false)
		return false
	}

	ok := status == http.StatusOK || status == http.StatusBadRequest
	l.setAvailable(ok)
	return ok
}

// Suggest requests a locator suggestion and returns the raw completion text.
func (l *Local) Suggest(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: suggestTemperature,
		MaxTokens:   suggestMaxTokens,
	}

	status, body, err := l.post(ctx, req)
	if err != nil {
		// Transport-level failure: the service is gone, stop asking.
		l.setAvailable(false)
		return "", fmt.Errorf("suggest: request failed: %w", err)
	}

	if status == http.StatusServiceUnavailable {
		l.logger.Info("suggest: AI service overloaded (503), disabling further attempts")
		l.setAvailable(false)
		return "", fmt.Errorf("suggest: service unavailable (503)")
	}
	if status != http.StatusOK {
		// Transient: leave the availability flag alone.
		l.logger.Warn("suggest: AI service error", "status", status, "body", truncate(string(body), 500))
		return "", fmt.Errorf("suggest: service returned status %d", status)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("suggest: decode response: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("suggest: empty completion")
	}

	content := resp.Choices[0].Message.Content
	l.logger.Debug("suggest: completion received", "length", len(content))
	return content, nil
}

// post sends one chat-completions request and returns status and body. A
// non-nil error means the request never completed (transport failure).
func (l *Local) post(ctx context.Context, req chatRequest) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	url := l.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	l.logger.Debug("suggest: POST", "url", url, "payload_size", len(payload))

	start := time.Now()
	resp, err := l.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	l.logger.Debug("suggest: response",
		"status", resp.StatusCode,
		"body_size", len(body),
		"duration", time.Since(start))
	return resp.StatusCode, body, nil
}

func (l *Local) setAvailable(v bool) {
	l.available = &v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
