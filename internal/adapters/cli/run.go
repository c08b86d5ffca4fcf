package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rdar-lab/ai-file-organizer/internal/bootstrap"
	"github.com/rdar-lab/ai-file-organizer/internal/config"
	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/watch"
	"github.com/rdar-lab/ai-file-organizer/internal/observability/logging"
)

const serviceName = "ai-file-organizer"

func run(cmd *cobra.Command, cfg config.Config, opts []bootstrap.Option) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), serviceName, cfg.LogLevel, cfg.LogFormat)

	logger.Info("config_loaded",
		"ai", cfg.AI,
		"input", cfg.InputFolder,
		"output", cfg.OutputFolder,
		"labels", strings.Join(cfg.Labels.Names(), ", "),
		"dry_run", cfg.DryRun,
		"csv_report", cfg.CSVReport,
		"continuous", cfg.Continuous,
	)
	if cfg.DryRun {
		logger.Warn("dry_run_enabled", "message", "no files will be moved")
	}

	app, err := bootstrap.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.StartMetricsServer(ctx); err != nil {
		return err
	}

	r := &runner{app: app, logger: logger, out: cmd.OutOrStdout(), styles: DefaultStyles()}
	if !cfg.Continuous {
		_, err := r.once(ctx)
		return err
	}
	return r.continuous(ctx)
}

type runner struct {
	app    *bootstrap.App
	logger *slog.Logger
	out    io.Writer
	styles Styles
}

func (r *runner) once(ctx context.Context) (domain.RunStats, error) {
	runID := uuid.NewString()
	r.logger.Info("cycle_started", "run_id", runID)

	reporter := NewProgressReporter(r.out, r.styles)
	organizer, err := r.app.NewOrganizer(runID, reporter)
	if err != nil {
		reporter.Close()
		return domain.RunStats{}, err
	}
	stats, err := organizer.Organize(ctx)
	reporter.Close()
	if err != nil {
		return stats, fmt.Errorf("organize %s: %w", r.app.Config.InputFolder, err)
	}

	fmt.Fprintln(r.out, RenderSummary(r.styles, stats, r.app.Config.Labels, r.app.Config.DryRun))
	return stats, nil
}

// continuous reruns the organizer until ctx is done. Cycle errors are logged
// and the loop keeps going.
func (r *runner) continuous(ctx context.Context) error {
	cfg := r.app.Config
	r.logger.Info("continuous_mode", "interval_s", cfg.Interval.Seconds(), "watch", cfg.Watch)

	var wake <-chan struct{}
	if cfg.Watch {
		w, err := watch.New(cfg.InputFolder, cfg.OutputFolder, r.logger)
		if err != nil {
			r.logger.Warn("watch_unavailable", "error", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
			wake = w.Wake()
		}
	}

	for {
		if _, err := r.once(ctx); err != nil {
			r.logger.Error("cycle_failed", "error", err)
		}
		if ctx.Err() != nil {
			r.logger.Info("continuous_mode_stopped")
			return nil
		}

		r.logger.Info("cycle_sleep", "seconds", cfg.Interval.Seconds())
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("continuous_mode_stopped")
			return nil
		case <-timer.C:
		case <-wake:
			timer.Stop()
			r.logger.Info("cycle_woken", "reason", "input_changed")
		}
	}
}
