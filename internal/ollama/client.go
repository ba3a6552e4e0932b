// Package ollama provides a client for the Ollama model server HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harrison/crewlocal/internal/config"
)

// ErrUnavailable is returned when the model server cannot be reached.
var ErrUnavailable = errors.New("ollama server unavailable")

// providerPrefix is the LiteLLM-style provider tag crew files put in front of model names.
const providerPrefix = "ollama/"

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4096

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Model describes one locally installed model.
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// GenerateRequest is a single non-streaming completion.
type GenerateRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature *float64
}

// generateBody is the JSON body for /api/generate.
type generateBody struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options *generateOption `json:"options,omitempty"`
}

type generateOption struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// Client talks to a single Ollama server.
type Client struct {
	config     config.OllamaConfig
	httpClient *http.Client
}

// NewClient creates a new client. The HTTP client timeout is set from the config.
func NewClient(cfg config.OllamaConfig) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// ModelName strips the "ollama/" provider prefix: "ollama/qwen2.5:7b" -> "qwen2.5:7b".
func ModelName(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), providerPrefix)
}

// CheckHealth returns nil when the server answers GET /api/tags with 200 OK.
func (c *Client) CheckHealth(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var tags tagsResponse
	if err := c.do(req, &tags); err != nil {
		return nil, err
	}
	return tags.Models, nil
}

// Generate runs a non-streaming completion and returns the response text.
func (c *Client) Generate(ctx context.Context, gr GenerateRequest) (string, error) {
	body := generateBody{
		Model:  ModelName(gr.Model),
		Prompt: gr.Prompt,
		System: gr.System,
		Stream: false,
	}
	if gr.Temperature != nil {
		body.Options = &generateOption{Temperature: *gr.Temperature}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp generateResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("generate with %s: %w", body.Model, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generate with %s: %s", body.Model, resp.Error)
	}
	return resp.Response, nil
}

// do sends req and decodes a 200 JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w at %s: %v", ErrUnavailable, c.config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
