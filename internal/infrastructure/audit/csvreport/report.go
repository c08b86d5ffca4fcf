package csvreport

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// Header is the column order of the report.
var Header = []string{
	"file_name",
	"file_size",
	"file_type",
	"mime_type",
	"is_executable",
	"file_info",
	"llm_response",
	"category",
	"sub_category",
	"error",
}

// Report appends one CSV row per audit record. The file is opened and closed
// for every record so each row is on disk before the next file is handled.
type Report struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Report, error) {
	if path == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "csv report", fmt.Errorf("empty path"))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "csv report", err)
		}
	}
	return &Report{path: path}, nil
}

func (r *Report) Path() string {
	return r.path
}

func (r *Report) Record(_ context.Context, record domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv report: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.Write(Row(record)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv report: %w", err)
	}
	return nil
}

// Row renders a record in Header order. Attribute columns are empty when the
// file could not be analyzed.
func Row(record domain.AuditRecord) []string {
	attrs := record.Attributes
	row := []string{record.FileName, "", "", "", "", attrs.JSON(), record.LLMResponse, record.Category, record.Subcategory, record.Error}
	if attrs != nil {
		row[1] = strconv.FormatInt(attrs.Size(), 10)
		row[2] = attrs.FileType()
		row[3] = attrs.MimeType()
		row[4] = strconv.FormatBool(attrs.IsExecutable())
	}
	return row
}
