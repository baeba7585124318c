package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"prompt-image-editor/internal/ops"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultModel     = "llama3.2"
	DefaultTimeout   = 60 * time.Second

	// maxReplyBytes caps how much of a reply body is read.
	maxReplyBytes = 1 << 20
)

// OllamaClient asks a local Ollama model to translate prompts.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*OllamaClient)

// WithModel selects the model name.
func WithModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) OllamaOption {
	return func(c *OllamaClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewOllamaClient creates a client for the server at baseURL.
func NewOllamaClient(baseURL string, opts ...OllamaOption) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	c := &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Interpret sends prompt to /api/generate and parses the returned list.
func (c *OllamaClient) Interpret(ctx context.Context, prompt, applied string) ([]ops.Request, error) {
	text, err := c.Generate(ctx, BuildInstruction(prompt, applied))
	if err != nil {
		return nil, err
	}
	reqs, err := ParseOperations(text)
	if err != nil {
		c.logger.Warn("PROMPT: Unusable reply", "model", c.model, "reply", text, "error", err)
		return nil, err
	}
	return reqs, nil
}

// Generate runs one non-streaming completion and returns the model text.
func (c *OllamaClient) Generate(ctx context.Context, instruction string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: instruction,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: API error (status %d): %s",
			ErrBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrMalformedResponse, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, out.Error)
	}

	c.logger.Debug("PROMPT: Model replied", "model", c.model, "duration", time.Since(start), "bytes", len(out.Response))
	return out.Response, nil
}

var _ Interpreter = (*OllamaClient)(nil)
