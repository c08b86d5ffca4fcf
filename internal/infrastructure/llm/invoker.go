package llm

import (
	"context"
	"log/slog"

	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/resilience"
)

const completeOperation = "llm.complete"

// Invoker decorates a provider ChatModel with the retry envelope.
type Invoker struct {
	provider string
	model    ports.ChatModel
	executor *resilience.Executor
	logger   *slog.Logger
}

func NewInvoker(provider string, model ports.ChatModel, executor *resilience.Executor, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithLogger(logger))
	}
	return &Invoker{
		provider: provider,
		model:    model,
		executor: executor,
		logger:   logger,
	}
}

func (i *Invoker) Complete(ctx context.Context, prompt string) (string, error) {
	var text string
	err := i.executor.Execute(ctx, completeOperation, func(ctx context.Context) error {
		i.logger.Debug("llm_request_sent", "provider", i.provider, "prompt_chars", len(prompt))
		out, err := i.model.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
