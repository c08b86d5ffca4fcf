package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm"
)

const DefaultModel = "gemini-pro"

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL is only set by tests and proxies.
	BaseURL    string
	HTTPClient *http.Client
}

// Client is a Gemini model reached through the Gemini API backend.
type Client struct {
	api         *genai.Client
	model       string
	temperature float32
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "google client", errors.New("API key is required for Google provider"))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = llm.NewHTTPClient(0)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	api, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "google client", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: api, model: model, temperature: cfg.Temperature}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, headers := llm.WithHeaderCapture(ctx)

	resp, err := c.api.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](c.temperature),
	})
	if err != nil {
		return "", &llm.ProviderError{Provider: "google", StatusCode: statusCode(err), Header: headers(), Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &llm.ProviderError{Provider: "google", Err: fmt.Errorf("empty response")}
	}
	return text, nil
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
