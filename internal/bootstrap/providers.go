package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rdar-lab/ai-file-organizer/internal/config"
	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm/anthropic"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm/google"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm/ollama"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm/openai"
)

// NewChatModel builds the provider client named by ai.Provider. For the local
// provider the model is pulled first when EnsureModel is set.
func NewChatModel(ctx context.Context, ai config.AIConfig, logger *slog.Logger) (ports.ChatModel, error) {
	temperature := float32(ai.Temperature)

	switch ai.Provider {
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:      ai.APIKey,
			Model:       ai.Model,
			Temperature: temperature,
			BaseURL:     ai.BaseURL,
		})
	case config.ProviderAzure:
		return openai.NewAzure(openai.Config{
			APIKey:         ai.APIKey,
			Model:          ai.Model,
			Temperature:    temperature,
			AzureEndpoint:  ai.AzureEndpoint,
			APIVersion:     ai.APIVersion,
			DeploymentName: ai.DeploymentName,
		})
	case config.ProviderGoogle:
		return google.New(ctx, google.Config{
			APIKey:      ai.APIKey,
			Model:       ai.Model,
			Temperature: temperature,
		})
	case config.ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:      ai.APIKey,
			Model:       ai.Model,
			Temperature: temperature,
			BaseURL:     ai.BaseURL,
		})
	case config.ProviderLocal:
		client := ollama.New(ai.BaseURL, ai.Model, temperature, logger)
		if ai.EnsureModel {
			if err := client.EnsureModel(ctx, 0); err != nil {
				return nil, fmt.Errorf("ensure local model %s: %w", client.Model(), err)
			}
		}
		return client, nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "create chat model", fmt.Errorf("unknown provider %q", ai.Provider))
	}
}
