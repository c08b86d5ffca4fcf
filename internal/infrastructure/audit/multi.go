package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/core/ports"
)

// NamedSink pairs a sink with the name used in logs.
type NamedSink struct {
	Name string
	Sink ports.AuditSink
}

// MultiSink fans every record out to all sinks. A failing sink does not stop
// the others; the joined error is returned after all were tried.
type MultiSink struct {
	sinks  []NamedSink
	logger *slog.Logger
}

func NewMultiSink(logger *slog.Logger, sinks ...NamedSink) *MultiSink {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]NamedSink, 0, len(sinks))
	for _, s := range sinks {
		if s.Sink != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept, logger: logger}
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Record(ctx context.Context, record domain.AuditRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Record(ctx, record); err != nil {
			m.logger.Warn("audit_sink_failed", "sink", s.Name, "file", record.FileName, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
