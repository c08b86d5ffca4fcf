package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known attribute keys produced by the file analyzer.
const (
	AttrFilename     = "filename"
	AttrFilePath     = "file_path"
	AttrFileSize     = "file_size"
	AttrFileType     = "file_type"
	AttrMimeType     = "mime_type"
	AttrIsExecutable = "is_executable"
	AttrMetadata     = "metadata"
)

// FileAttributes is the opaque metadata record for one file. The core only
// reads the well-known keys; everything else is passed through to the prompt
// and the audit trail.
type FileAttributes map[string]any

func (a FileAttributes) Filename() string {
	return a.stringValue(AttrFilename, "unknown")
}

func (a FileAttributes) FileType() string {
	return a.stringValue(AttrFileType, "unknown")
}

func (a FileAttributes) MimeType() string {
	return a.stringValue(AttrMimeType, "unknown")
}

func (a FileAttributes) Size() int64 {
	switch v := a[AttrFileSize].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

func (a FileAttributes) IsExecutable() bool {
	v, _ := a[AttrIsExecutable].(bool)
	return v
}

// JSON serializes the attributes with sorted keys.
func (a FileAttributes) JSON() string {
	if a == nil {
		return "null"
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(a))
	}
	return string(raw)
}

func (a FileAttributes) stringValue(key, fallback string) string {
	if v, ok := a[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Decision is the validated outcome of one categorization.
type Decision struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Resolved    bool   `json:"resolved"`

	// RejectedSubcategory holds a sub-category the model proposed that is not
	// configured under Category.
	RejectedSubcategory string `json:"rejected_subcategory,omitempty"`
}

func Unresolved() Decision {
	return Decision{}
}

func (d Decision) String() string {
	if !d.Resolved {
		return "<unresolved>"
	}
	if d.Subcategory == "" {
		return d.Category
	}
	return d.Category + "/" + d.Subcategory
}

// AuditRecord is one row of the per-file report.
type AuditRecord struct {
	RunID       string         `json:"run_id"`
	FileName    string         `json:"file_name"`
	SourcePath  string         `json:"source_path"`
	Destination string         `json:"destination,omitempty"`
	Attributes  FileAttributes `json:"file_info"`
	LLMResponse string         `json:"llm_response"`
	Category    string         `json:"category"`
	Subcategory string         `json:"sub_category"`
	DryRun      bool           `json:"dry_run"`
	Error       string         `json:"error"`
	RecordedAt  time.Time      `json:"recorded_at"`
}

func (r AuditRecord) Failed() bool {
	return r.Error != ""
}

// RunStats summarizes one organizer run.
type RunStats struct {
	RunID      string         `json:"run_id"`
	TotalFiles int            `json:"total_files"`
	Processed  int            `json:"processed"`
	Failed     int            `json:"failed"`
	ByCategory map[string]int `json:"categorization"`
	Cancelled  bool           `json:"cancelled"`
	Duration   time.Duration  `json:"duration"`
}

// NewRunStats zero-fills the per-category counters for every category.
func NewRunStats(runID string, categories Categories) RunStats {
	byCategory := make(map[string]int, categories.Len())
	for _, name := range categories.Names() {
		byCategory[name] = 0
	}
	return RunStats{RunID: runID, ByCategory: byCategory}
}

// Progress event kinds.
const (
	EventFileStarted  = "file_started"
	EventFileFinished = "file_finished"
	EventRunCompleted = "run_completed"
)

// ProgressEvent reports organizer progress to presentation layers.
type ProgressEvent struct {
	Kind     string
	RunID    string
	File     string
	Index    int
	Total    int
	Decision Decision
	Err      error
	Stats    *RunStats
}
