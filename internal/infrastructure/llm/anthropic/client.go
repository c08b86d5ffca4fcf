package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1024
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	BaseURL     string
	HTTPClient  *http.Client
}

type Client struct {
	api         sdk.Client
	model       string
	temperature float64
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "anthropic client", errors.New("API key is required for Anthropic provider"))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = llm.NewHTTPClient(0)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// retries belong to the invoker
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:         sdk.NewClient(opts...),
		model:       model,
		temperature: float64(cfg.Temperature),
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   defaultMaxTokens,
		Temperature: sdk.Float(c.temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapError(err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", &llm.ProviderError{Provider: "anthropic", Err: fmt.Errorf("no text content in response")}
}

func wrapError(err error) error {
	out := &llm.ProviderError{Provider: "anthropic", Err: err}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		out.StatusCode = apiErr.StatusCode
		if apiErr.Response != nil {
			out.Header = apiErr.Response.Header.Clone()
		}
	}
	return out
}
