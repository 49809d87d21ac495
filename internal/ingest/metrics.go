package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for ingestion.
type Metrics struct {
	IngestionsTotal *prometheus.CounterVec
	FilesTotal      *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
}

// NewMetrics creates and registers ingestion metrics once per process.
//
// Metrics:
//   - repolens_ingestions_total{source,outcome}
//   - repolens_ingest_files_total{source,disposition}
//   - repolens_ingest_duration_seconds{source}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			IngestionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repolens_ingestions_total",
					Help: "Total number of ingestions by outcome",
				},
				[]string{"source", "outcome"},
			),
			FilesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repolens_ingest_files_total",
					Help: "Files seen during ingestion by disposition",
				},
				[]string{"source", "disposition"},
			),
			Duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "repolens_ingest_duration_seconds",
					Help:    "Duration of ingestions in seconds",
					Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
				},
				[]string{"source"},
			),
		}
	})
	return globalMetrics
}

// RecordFiles adds per-disposition counts from stats.
func (m *Metrics) RecordFiles(source string, s Stats) {
	for disposition, n := range map[string]int{
		"accepted":  s.Accepted,
		"ignored":   s.Ignored,
		"non_text":  s.NonText,
		"oversized": s.Oversized,
		"failed":    s.Failed,
	} {
		if n > 0 {
			m.FilesTotal.WithLabelValues(source, disposition).Add(float64(n))
		}
	}
}

// Outcome maps an ingestion error onto a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ghclient.ErrRepoNotFound):
		return "not_found"
	case errors.Is(err, ghclient.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, ErrNoTextFiles):
		return "no_text_files"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	}
	var pe *ghclient.ProviderError
	if errors.As(err, &pe) {
		return "provider_error"
	}
	return "error"
}
