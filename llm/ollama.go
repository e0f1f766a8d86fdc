package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport failure classes surfaced to callers. Generate never returns
// partial text alongside one of these.
var (
	ErrUnreachable   = errors.New("ollama unreachable")
	ErrTimeout       = errors.New("ollama request timed out")
	ErrEmptyResponse = errors.New("ollama returned an empty response")
)

// Client talks to a local Ollama server over its HTTP API.
type Client struct {
	Endpoint string
	Model    string
	client   *http.Client
	Debug    bool
}

type ollamaResponse struct {
	Text     string `json:"text"`
	Response string `json:"response"`
	Message  *struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason string `json:"done_reason"`
}

// NewClient builds a new Ollama client. Local inference can be slow, so the
// default request timeout is generous.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.getHTTPClient().Timeout = d
}

// SetDebugLogging enables or disables verbose logging for requests/responses.
func (c *Client) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

// Generate sends a single prompt completion and returns the raw response text.
// Failures are classified as ErrUnreachable, ErrTimeout, or ErrEmptyResponse.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt required")
	}
	payload := map[string]interface{}{
		"model":  c.model(),
		"prompt": prompt,
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	c.logPayload("/api/generate", body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return "", fmt.Errorf("%w: %s: %s", ErrUnreachable, resp.Status, detail)
		}
		return "", fmt.Errorf("%w: %s", ErrUnreachable, resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}
	c.logResponse("/api/generate", responseBody)
	var raw ollamaResponse
	if err := json.Unmarshal(responseBody, &raw); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	text := firstNonEmpty(raw.Text, raw.Response)
	if text == "" && raw.Message != nil {
		text = raw.Message.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// classifyTransportError folds net/http failure modes into the two transport
// classes callers retry on.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func (c *Client) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *Client) model() string {
	if c.Model != "" {
		return c.Model
	}
	return "codellama"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) logPayload(path string, payload []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[ollama] request %s payload: %s", path, truncate(string(payload), 2048))
}

func (c *Client) logResponse(path string, resp []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[ollama] response %s payload: %s", path, truncate(string(resp), 2048))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
