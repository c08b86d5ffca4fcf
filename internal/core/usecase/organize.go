package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
)

// MaxDuplicateSuffix bounds the _N suffixes tried for a taken destination name.
const MaxDuplicateSuffix = 1000

// File outcomes reported to ports.OrganizerMetrics.
const (
	OutcomeMoved  = "moved"
	OutcomeDryRun = "dry_run"
	OutcomeFailed = "failed"
)

type OrganizerOptions struct {
	InputDir   string
	OutputDir  string
	DryRun     bool
	Categories domain.Categories
	RunID      string

	Logger  *slog.Logger
	Metrics ports.OrganizerMetrics
	Events  ports.EventPublisher
	Now     func() time.Time
}

// OrganizeUseCase processes the input tree one file at a time. A value is
// good for one run; create a fresh one per cycle.
type OrganizeUseCase struct {
	inputDir   string
	outputDir  string
	dryRun     bool
	categories domain.Categories
	runID      string

	analyzer    ports.FileAnalyzer
	categorizer ports.FileCategorizer
	store       ports.FileStore
	audit       ports.AuditSink

	logger  *slog.Logger
	metrics ports.OrganizerMetrics
	events  ports.EventPublisher
	now     func() time.Time
}

func NewOrganizeUseCase(
	opts OrganizerOptions,
	analyzer ports.FileAnalyzer,
	categorizer ports.FileCategorizer,
	store ports.FileStore,
	audit ports.AuditSink,
) (*OrganizeUseCase, error) {
	if opts.Categories.Len() == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "create organizer", errors.New("no categories configured"))
	}
	input := strings.TrimSpace(opts.InputDir)
	if input == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "create organizer", errors.New("input folder is required"))
	}
	exists, err := store.Exists(input)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "create organizer", err)
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrConfiguration, "create organizer", fmt.Errorf("%w: %s", domain.ErrInputNotFound, input))
	}

	uc := &OrganizeUseCase{
		inputDir:    input,
		outputDir:   strings.TrimSpace(opts.OutputDir),
		dryRun:      opts.DryRun,
		categories:  opts.Categories,
		runID:       opts.RunID,
		analyzer:    analyzer,
		categorizer: categorizer,
		store:       store,
		audit:       audit,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		events:      opts.Events,
		now:         opts.Now,
	}
	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	uc.logger = uc.logger.With("run_id", uc.runID)

	if !uc.dryRun {
		if uc.outputDir == "" {
			return nil, domain.WrapError(domain.ErrConfiguration, "create organizer", errors.New("output folder is required unless dry-run is enabled"))
		}
		if err := uc.prepareOutput(); err != nil {
			return nil, err
		}
	}
	return uc, nil
}

func (uc *OrganizeUseCase) prepareOutput() error {
	dirs := []string{uc.outputDir}
	for _, item := range uc.categories.Items() {
		dirs = append(dirs, filepath.Join(uc.outputDir, item.Name))
		for _, sub := range item.Subcategories {
			dirs = append(dirs, filepath.Join(uc.outputDir, item.Name, sub))
		}
	}
	for _, dir := range dirs {
		if err := uc.store.EnsureDir(dir); err != nil {
			return domain.WrapError(domain.ErrFilesystem, "prepare output", err)
		}
	}
	return nil
}

// Organize walks the input tree once. Per-file failures are recorded and
// counted; cancellation stops the walk and returns the partial statistics
// with Cancelled set and a nil error.
func (uc *OrganizeUseCase) Organize(ctx context.Context) (domain.RunStats, error) {
	started := uc.now()
	stats := domain.NewRunStats(uc.runID, uc.categories)

	files, err := uc.store.ListFiles(uc.inputDir, uc.excludedDir())
	if err != nil {
		return stats, domain.WrapError(domain.ErrFilesystem, "list input files", err)
	}
	uc.logger.Info("organize_started",
		"input", uc.inputDir,
		"output", uc.outputDir,
		"dry_run", uc.dryRun,
		"files", len(files),
	)

	for i, path := range files {
		if ctx.Err() != nil {
			stats.Cancelled = true
			break
		}
		stats.TotalFiles++
		uc.publish(ctx, domain.ProgressEvent{Kind: domain.EventFileStarted, File: path, Index: i + 1, Total: len(files)})

		fileStarted := uc.now()
		record, decision, err := uc.processFile(ctx, path)
		if isCancellation(ctx, err) {
			stats.Cancelled = true
			break
		}

		record.RecordedAt = uc.now()
		if err != nil {
			stats.Failed++
			record.Category, record.Subcategory, record.Destination = "", "", ""
			record.Error = err.Error()
			uc.logger.Error("file_failed", "file", path, "error", err)
			uc.observeFile(OutcomeFailed, "", fileStarted)
		} else {
			stats.Processed++
			stats.ByCategory[record.Category]++
			uc.logger.Info("file_organized",
				"file", path,
				"category", decision.String(),
				"destination", record.Destination,
				"dry_run", uc.dryRun,
			)
			outcome := OutcomeMoved
			if uc.dryRun {
				outcome = OutcomeDryRun
			}
			uc.observeFile(outcome, record.Category, fileStarted)
		}
		uc.recordAudit(ctx, record)
		uc.publish(ctx, domain.ProgressEvent{Kind: domain.EventFileFinished, File: path, Index: i + 1, Total: len(files), Decision: decision, Err: err})
	}

	stats.Duration = uc.now().Sub(started)
	if stats.Cancelled {
		uc.logger.Warn("organize_cancelled", "processed", stats.Processed, "failed", stats.Failed)
	}
	uc.logger.Info("organize_completed",
		"total_files", stats.TotalFiles,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	if uc.metrics != nil {
		uc.metrics.ObserveRun(stats)
	}
	uc.publish(ctx, domain.ProgressEvent{Kind: domain.EventRunCompleted, Total: len(files), Stats: &stats})
	return stats, nil
}

func (uc *OrganizeUseCase) processFile(ctx context.Context, path string) (domain.AuditRecord, domain.Decision, error) {
	name := filepath.Base(path)
	record := domain.AuditRecord{
		RunID:      uc.runID,
		FileName:   name,
		SourcePath: path,
		DryRun:     uc.dryRun,
	}

	attrs, err := uc.analyzer.Analyze(ctx, path)
	if err != nil {
		return record, domain.Unresolved(), domain.WrapError(domain.ErrAnalysis, "analyze", err)
	}
	record.Attributes = attrs

	raw, decision, err := uc.categorizer.Categorize(ctx, attrs, uc.categories)
	record.LLMResponse = raw
	if err != nil {
		return record, decision, err
	}
	if !decision.Resolved {
		uc.logger.Warn("category_unresolved", "file", path, "response", raw, "fallback", domain.OtherCategory)
		decision = domain.Decision{Category: domain.OtherCategory, Resolved: true}
	}

	destDir := filepath.Join(uc.outputDir, decision.Category)
	if decision.Subcategory != "" {
		destDir = filepath.Join(destDir, decision.Subcategory)
	}
	target, err := uc.destination(destDir, name)
	if err != nil {
		return record, decision, err
	}

	if !uc.dryRun {
		if err := uc.store.EnsureDir(destDir); err != nil {
			return record, decision, domain.WrapError(domain.ErrFilesystem, "create destination", err)
		}
		if err := uc.store.Move(path, target); err != nil {
			return record, decision, domain.WrapError(domain.ErrFilesystem, "move file", err)
		}
	}

	record.Category = decision.Category
	record.Subcategory = decision.Subcategory
	record.Destination = target
	return record, decision, nil
}

// isCancellation reports whether err stems from ctx being done. Such a file is
// neither processed nor failed.
func isCancellation(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(err, domain.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// destination returns dir/name, or dir/base_N.ext for the smallest free N.
func (uc *OrganizeUseCase) destination(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if uc.outputDir == "" {
		return candidate, nil
	}
	taken, err := uc.store.Exists(candidate)
	if err != nil {
		return "", domain.WrapError(domain.ErrFilesystem, "check destination", err)
	}
	if !taken {
		return candidate, nil
	}

	base, ext := SplitExtension(name)
	for i := 1; i <= MaxDuplicateSuffix; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		taken, err := uc.store.Exists(candidate)
		if err != nil {
			return "", domain.WrapError(domain.ErrFilesystem, "check destination", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.WrapError(domain.ErrDestinationConflict, "resolve destination",
		fmt.Errorf("%s: no free name after %d attempts", filepath.Join(dir, name), MaxDuplicateSuffix))
}

// SplitExtension splits the last extension off name. A leading dot alone does
// not start an extension, so ".bashrc" has none.
func SplitExtension(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name || ext == "" {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// excludedDir is the output folder when it is nested strictly inside the
// input folder.
func (uc *OrganizeUseCase) excludedDir() string {
	if uc.outputDir == "" {
		return ""
	}
	inAbs, err := filepath.Abs(uc.inputDir)
	if err != nil {
		return ""
	}
	outAbs, err := filepath.Abs(uc.outputDir)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(inAbs, outAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return outAbs
}

func (uc *OrganizeUseCase) recordAudit(ctx context.Context, record domain.AuditRecord) {
	if uc.audit == nil {
		return
	}
	// a record for a finished file is written even when the run was just cancelled
	if err := uc.audit.Record(context.WithoutCancel(ctx), record); err != nil {
		uc.logger.Error("audit_record_failed", "file", record.SourcePath, "error", err)
	}
}

func (uc *OrganizeUseCase) observeFile(outcome, category string, started time.Time) {
	if uc.metrics != nil {
		uc.metrics.ObserveFile(outcome, category, uc.now().Sub(started))
	}
}

func (uc *OrganizeUseCase) publish(ctx context.Context, event domain.ProgressEvent) {
	if uc.events == nil {
		return
	}
	event.RunID = uc.runID
	uc.events.Publish(ctx, event)
}
