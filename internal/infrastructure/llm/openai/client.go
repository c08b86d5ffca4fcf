package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm"
)

const (
	DefaultModel      = "gpt-3.5-turbo"
	defaultAPIVersion = "2024-02-01"
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the public endpoint for OpenAI-compatible servers.
	BaseURL string

	AzureEndpoint  string
	APIVersion     string
	DeploymentName string

	HTTPClient *http.Client
}

// Client is a chat-completion model backed by the OpenAI or Azure OpenAI API.
type Client struct {
	api         *goopenai.Client
	provider    string
	model       string
	temperature float32
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai client", errors.New("API key is required for OpenAI provider"))
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = httpClient(cfg)

	return &Client{
		api:         goopenai.NewClientWithConfig(clientCfg),
		provider:    "openai",
		model:       modelOrDefault(cfg.Model),
		temperature: cfg.Temperature,
	}, nil
}

// NewAzure targets an Azure OpenAI resource. The deployment name defaults to
// the model name.
func NewAzure(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "azure client", errors.New("API key is required for Azure provider"))
	}
	if strings.TrimSpace(cfg.AzureEndpoint) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "azure client", errors.New("Azure endpoint is required for Azure provider"))
	}

	model := modelOrDefault(cfg.Model)
	deployment := strings.TrimSpace(cfg.DeploymentName)
	if deployment == "" {
		deployment = model
	}

	clientCfg := goopenai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.AzureEndpoint, "/"))
	clientCfg.APIVersion = defaultAPIVersion
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	clientCfg.AzureModelMapperFunc = func(string) string {
		return deployment
	}
	clientCfg.HTTPClient = httpClient(cfg)

	return &Client{
		api:         goopenai.NewClientWithConfig(clientCfg),
		provider:    "azure",
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, headers := llm.WithHeaderCapture(ctx)

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", c.wrapError(err, headers())
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ProviderError{Provider: c.provider, Err: fmt.Errorf("empty choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) wrapError(err error, header http.Header) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return &llm.ProviderError{Provider: c.provider, StatusCode: status, Header: header, Err: err}
}

func httpClient(cfg Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return llm.NewHTTPClient(0)
}

func modelOrDefault(model string) string {
	if strings.TrimSpace(model) == "" {
		return DefaultModel
	}
	return model
}
