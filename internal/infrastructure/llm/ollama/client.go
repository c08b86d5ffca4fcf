package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm"
)

const (
	DefaultModel   = "llama2"
	DefaultBaseURL = "http://localhost:11434/v1"
)

// Client talks to a local Ollama server through its native API.
type Client struct {
	baseURL      string
	model        string
	temperature  float32
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

func New(baseURL, model string, temperature float32, logger *slog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      ManagementBase(baseURL),
		model:        model,
		temperature:  temperature,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}
}

// ManagementBase maps an OpenAI-compatible inference URL such as
// http://ollama:11434/v1 to the server root that serves /api/*.
func ManagementBase(baseURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err == nil && parsed.Scheme != "" && parsed.Host != "" && strings.HasPrefix(strings.Trim(parsed.Path, "/"), "v1") {
		return parsed.Scheme + "://" + parsed.Host
	}
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.temperature,
		},
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", toProviderError(err)
	}
	return strings.TrimSpace(response.Response), nil
}

func toProviderError(err error) error {
	out := &llm.ProviderError{Provider: "local", Err: err}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode
		out.Header = statusErr.Header
	}
	return out
}
