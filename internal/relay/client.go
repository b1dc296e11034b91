package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lifeos/server/internal/prompt"
)

// Sentinel errors for upstream conditions the handler translates to
// matching downstream status codes. Neither is retried.
var (
	ErrRateLimited     = errors.New("upstream rate limit exceeded")
	ErrPaymentRequired = errors.New("upstream payment required")
	ErrNotConfigured   = errors.New("AI gateway credential is not configured")
)

// UpstreamError is any other non-2xx response from the AI gateway.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("AI gateway returned status %d", e.Status)
}

// ChatMessage is one turn sent to the gateway.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the vendor chat-completions endpoint.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a gateway client. The HTTP client carries no timeout
// because completion streams are long-lived; cancellation comes from the
// request context.
func NewClient(url, apiKey, model string) *Client {
	return &Client{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type completionRequest struct {
	Model      string        `json:"model"`
	Messages   []ChatMessage `json:"messages"`
	Tools      []prompt.Tool `json:"tools"`
	ToolChoice string        `json:"tool_choice"`
	Stream     bool          `json:"stream"`
}

// StreamCompletion opens a streaming completion for the given system prompt,
// history and tools. The returned body is the raw SSE stream; the caller
// owns closing it. Rate-limit and billing conditions are detected from the
// initial response, before any streaming happens.
func (c *Client) StreamCompletion(ctx context.Context, systemPrompt string, history []ChatMessage, tools []prompt.Tool) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	body, err := json.Marshal(completionRequest{
		Model:      c.model,
		Messages:   messages,
		Tools:      tools,
		ToolChoice: "auto",
		Stream:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call AI gateway: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		drainAndClose(resp.Body)
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		drainAndClose(resp.Body)
		return nil, ErrPaymentRequired
	default:
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		drainAndClose(resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(errBody)}
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
