package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rdar-lab/ai-file-organizer/internal/config"
	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
	"github.com/rdar-lab/ai-file-organizer/internal/core/usecase"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/analyzer"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/audit"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/audit/csvreport"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/audit/natsaudit"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/audit/postgres"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/resilience"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/storage/localfs"
	"github.com/rdar-lab/ai-file-organizer/internal/observability/metrics"
)

const serviceName = "ai-file-organizer"

// App holds the long-lived collaborators shared by every organizer run.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Analyzer    *analyzer.Analyzer
	Categorizer *usecase.CategorizeUseCase
	Store       *localfs.Storage
	Audit       *audit.MultiSink
	Metrics     *metrics.OrganizerMetrics

	closeFns []func()
}

type Option func(*options)

type options struct {
	chatModel ports.ChatModel
}

// WithChatModel skips the provider factory. Tests use it to avoid network
// access.
func WithChatModel(model ports.ChatModel) Option {
	return func(o *options) {
		o.chatModel = model
	}
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Analyzer: analyzer.New(logger),
		Store:    localfs.New(),
		Metrics:  metrics.NewOrganizerMetrics(serviceName),
	}

	model := o.chatModel
	if model == nil {
		provider, err := NewChatModel(ctx, cfg.AI, logger)
		if err != nil {
			return nil, err
		}
		model = provider
	}

	executor := resilience.NewExecutor(
		executorConfig(cfg.AI),
		resilience.WithLogger(logger),
		resilience.WithObserver(app.Metrics),
	)
	invoker := llm.NewInvoker(cfg.AI.Provider, model, executor, logger)
	app.Categorizer = usecase.NewCategorizeUseCase(invoker, logger)

	sink, err := app.openAuditSinks(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Audit = sink
	return app, nil
}

func executorConfig(ai config.AIConfig) resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.Retries = ai.Retries
	cfg.BackoffFactor = ai.BackoffFactor
	cfg.MaxBackoff = ai.MaxBackoff
	cfg.RateLimitBackoffFactor = ai.RateLimitBackoffFactor
	cfg.RateLimitMaxBackoff = ai.RateLimitMaxBackoff
	cfg.RequestsPerMinute = ai.RequestsPerMinute
	cfg.BreakerEnabled = ai.CircuitBreaker
	return cfg
}

func (a *App) openAuditSinks(ctx context.Context) (*audit.MultiSink, error) {
	var sinks []audit.NamedSink

	if path := a.Config.CSVReport; path != "" {
		report, err := csvreport.New(path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, audit.NamedSink{Name: "csv", Sink: report})
		a.Logger.Info("csv_report_enabled", "path", path)
	}

	if dsn := a.Config.Audit.PostgresDSN; dsn != "" {
		db, err := postgres.OpenDB(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := postgres.NewAuditRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		sinks = append(sinks, audit.NamedSink{Name: "postgres", Sink: repo})
		a.Logger.Info("postgres_audit_enabled")
	}

	if url := a.Config.Audit.NATSURL; url != "" {
		publisher, err := natsaudit.Connect(url, natsaudit.Options{Subject: a.Config.Audit.NATSSubject, Logger: a.Logger})
		if err != nil {
			return nil, fmt.Errorf("connect audit stream: %w", err)
		}
		a.closeFns = append(a.closeFns, publisher.Close)
		sinks = append(sinks, audit.NamedSink{Name: "nats", Sink: publisher})
		a.Logger.Info("nats_audit_enabled", "subject", publisher.Subject())
	}

	return audit.NewMultiSink(a.Logger, sinks...), nil
}

// NewOrganizer builds the organizer for one run.
func (a *App) NewOrganizer(runID string, events ports.EventPublisher) (ports.FileOrganizer, error) {
	uc, err := usecase.NewOrganizeUseCase(
		usecase.OrganizerOptions{
			InputDir:   a.Config.InputFolder,
			OutputDir:  a.Config.OutputFolder,
			DryRun:     a.Config.DryRun,
			Categories: a.Config.Labels,
			RunID:      runID,
			Logger:     a.Logger,
			Metrics:    a.Metrics,
			Events:     events,
		},
		a.Analyzer,
		a.Categorizer,
		a.Store,
		a.Audit,
	)
	if err != nil {
		return nil, err
	}
	return uc, nil
}

// StartMetricsServer serves /metrics until ctx is done. It is a no-op when no
// address is configured.
func (a *App) StartMetricsServer(ctx context.Context) error {
	if a.Config.MetricsAddr == "" {
		return nil
	}
	if err := metrics.NewServer(a.Config.MetricsAddr, a.Metrics, a.Logger).Start(ctx); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
