package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// ProgressReporter implements ports.EventPublisher by printing one line per
// finished file. Events are handed to a single writer goroutine over a
// channel so the organizer never writes to the terminal itself.
type ProgressReporter struct {
	out    io.Writer
	styles Styles
	events chan domain.ProgressEvent
	done   chan struct{}
	once   sync.Once
}

func NewProgressReporter(out io.Writer, styles Styles) *ProgressReporter {
	r := &ProgressReporter{
		out:    out,
		styles: styles,
		events: make(chan domain.ProgressEvent, 64),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *ProgressReporter) Publish(_ context.Context, event domain.ProgressEvent) {
	r.events <- event
}

// Close drains pending events. Publish must not be called afterwards.
func (r *ProgressReporter) Close() {
	r.once.Do(func() {
		close(r.events)
		<-r.done
	})
}

func (r *ProgressReporter) run() {
	defer close(r.done)
	for event := range r.events {
		if event.Kind != domain.EventFileFinished {
			continue
		}
		fmt.Fprintln(r.out, r.line(event))
	}
}

func (r *ProgressReporter) line(event domain.ProgressEvent) string {
	prefix := r.styles.Muted.Render(fmt.Sprintf("[%d/%d]", event.Index, event.Total))
	name := filepath.Base(event.File)
	if event.Err != nil {
		return fmt.Sprintf("%s %s %s", prefix, name, r.styles.Error.Render("failed: "+event.Err.Error()))
	}
	target := event.Decision.String()
	if !event.Decision.Resolved {
		target = domain.OtherCategory
	}
	return fmt.Sprintf("%s %s -> %s", prefix, name, r.styles.Success.Render(target))
}
