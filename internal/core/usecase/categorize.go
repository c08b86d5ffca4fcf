package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
)

type CategorizeUseCase struct {
	model  ports.ChatModel
	logger *slog.Logger
}

func NewCategorizeUseCase(model ports.ChatModel, logger *slog.Logger) *CategorizeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategorizeUseCase{model: model, logger: logger}
}

// Categorize returns the raw model answer and its resolution. An unresolved
// decision is not an error.
func (uc *CategorizeUseCase) Categorize(ctx context.Context, attrs domain.FileAttributes, categories domain.Categories) (string, domain.Decision, error) {
	prompt := BuildPrompt(categories, attrs)
	filename := attrs.Filename()

	uc.logger.Debug("llm_prompt", "filename", filename, "prompt", prompt)
	raw, err := uc.model.Complete(ctx, prompt)
	if err != nil {
		return "", domain.Unresolved(), fmt.Errorf("categorize %s: %w", filename, err)
	}
	raw = strings.TrimSpace(raw)
	uc.logger.Info("llm_response", "filename", filename, "response", raw)

	return raw, ResolveCategory(uc.logger, categories, filename, raw), nil
}
