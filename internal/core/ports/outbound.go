package ports

import (
	"context"
	"time"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// FileAnalyzer derives metadata for a file. Missing optional metadata is not
// an error; I/O failures are.
type FileAnalyzer interface {
	Analyze(ctx context.Context, path string) (domain.FileAttributes, error)
}

// ChatModel sends a single prompt to a language model and returns the text
// of its answer.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AuditSink receives one record per processed file, in processing order.
type AuditSink interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

// FileStore lists the input tree and performs the filesystem mutations of a
// run. ListFiles returns regular files in lexical walk order and never
// descends into exclude.
type FileStore interface {
	ListFiles(root, exclude string) ([]string, error)
	EnsureDir(path string) error
	Exists(path string) (bool, error)
	Move(src, dst string) error
}

// OrganizerMetrics observes per-file outcomes.
type OrganizerMetrics interface {
	ObserveFile(outcome, category string, duration time.Duration)
	ObserveRun(stats domain.RunStats)
}

// EventPublisher receives organizer progress. Implementations must not block
// the run for long.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent)
}
