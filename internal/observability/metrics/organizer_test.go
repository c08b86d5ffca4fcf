package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

func TestObserveFileCountsByOutcomeAndCategory(t *testing.T) {
	m := NewOrganizerMetrics("test")

	m.ObserveFile("moved", "Documents", 200*time.Millisecond)
	m.ObserveFile("moved", "Documents", time.Second)
	m.ObserveFile("failed", "", time.Second)

	if got := testutil.ToFloat64(m.filesTotal.WithLabelValues("moved", "Documents")); got != 2 {
		t.Fatalf("moved Documents = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.filesTotal.WithLabelValues("failed", "none")); got != 1 {
		t.Fatalf("failed none = %v, want 1", got)
	}
}

func TestObserveAttemptAndRun(t *testing.T) {
	m := NewOrganizerMetrics("test")

	m.ObserveAttempt("llm.complete", "retry")
	m.ObserveAttempt("llm.complete", "success")
	m.ObserveRun(domain.RunStats{TotalFiles: 5, Processed: 4, Failed: 1, Duration: 3 * time.Second})
	m.ObserveRun(domain.RunStats{Cancelled: true})

	if got := testutil.ToFloat64(m.llmAttempts.WithLabelValues("llm.complete", "retry")); got != 1 {
		t.Fatalf("retry attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("cancelled runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastRunFiles.WithLabelValues("total")); got != 0 {
		t.Fatalf("last total = %v, want 0 after the cancelled run", got)
	}
}

func TestServerExposesMetricsAndHealth(t *testing.T) {
	m := NewOrganizerMetrics("test")
	m.ObserveFile("dry_run", "Images", time.Millisecond)
	handler := NewServer("127.0.0.1:0", m, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `file_organizer_files_total{category="Images",outcome="dry_run",service="test"} 1`) {
		t.Fatalf("metrics body missing file counter:\n%s", body)
	}
	if !strings.Contains(body, `file_organizer_http_requests_total{path="/healthz",status="200"} 1`) {
		t.Fatalf("metrics body missing request counter:\n%s", body)
	}
}
