package ports

import (
	"context"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// FileCategorizer is the inbound contract for classifying one file.
type FileCategorizer interface {
	Categorize(ctx context.Context, attrs domain.FileAttributes, categories domain.Categories) (string, domain.Decision, error)
}

// FileOrganizer is the inbound contract for one pass over the input folder.
type FileOrganizer interface {
	Organize(ctx context.Context) (domain.RunStats, error)
}
