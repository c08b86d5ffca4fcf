package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

const namespace = "file_organizer"

// OrganizerMetrics implements ports.OrganizerMetrics and
// resilience.AttemptObserver on a private registry.
type OrganizerMetrics struct {
	registry *prometheus.Registry

	filesTotal   *prometheus.CounterVec
	fileDuration *prometheus.HistogramVec
	llmAttempts  *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRunFiles *prometheus.GaugeVec
}

func NewOrganizerMetrics(service string) *OrganizerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "files",
			Name:        "total",
			Help:        "Files handled by outcome and category.",
			ConstLabels: constLabels,
		},
		[]string{"outcome", "category"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "files",
			Name:        "duration_seconds",
			Help:        "Per-file handling duration in seconds by outcome.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	llmAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "llm",
			Name:        "attempts_total",
			Help:        "Model call attempts by operation and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"operation", "outcome"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "runs",
			Name:        "total",
			Help:        "Completed organizer runs by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "runs",
			Name:        "duration_seconds",
			Help:        "Organizer run duration in seconds.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			ConstLabels: constLabels,
		},
	)
	lastRunFiles := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "runs",
			Name:        "last_files",
			Help:        "File counts of the most recent run.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	registry.MustRegister(filesTotal, fileDuration, llmAttempts, runsTotal, runDuration, lastRunFiles)

	return &OrganizerMetrics{
		registry:     registry,
		filesTotal:   filesTotal,
		fileDuration: fileDuration,
		llmAttempts:  llmAttempts,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		lastRunFiles: lastRunFiles,
	}
}

func (m *OrganizerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *OrganizerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *OrganizerMetrics) ObserveFile(outcome, category string, duration time.Duration) {
	if category == "" {
		category = "none"
	}
	m.filesTotal.WithLabelValues(outcome, category).Inc()
	m.fileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *OrganizerMetrics) ObserveAttempt(operation, outcome string) {
	m.llmAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *OrganizerMetrics) ObserveRun(stats domain.RunStats) {
	status := "completed"
	if stats.Cancelled {
		status = "cancelled"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(stats.Duration.Seconds())
	m.lastRunFiles.WithLabelValues("total").Set(float64(stats.TotalFiles))
	m.lastRunFiles.WithLabelValues("processed").Set(float64(stats.Processed))
	m.lastRunFiles.WithLabelValues("failed").Set(float64(stats.Failed))
}
