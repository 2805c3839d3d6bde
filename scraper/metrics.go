package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the sync engine.
type Metrics struct {
	Registry         *prometheus.Registry
	PagesFetched     *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	ItemsExtracted   prometheus.Counter
	RecordsWritten   *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	BatchCommits     prometheus.Counter
	RunsTotal        *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	QuotaDeniedTotal prometheus.Counter
	HealthScore      prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pages_fetched_total",
			Help: "Total pages fetched, by page kind.",
		},
		[]string{"kind"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_fetch_duration_seconds",
			Help:    "HTTP fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_items_extracted_total",
			Help: "Total items extracted from listing pages.",
		},
	)
	recordsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_written_total",
			Help: "Total records written, by operation.",
		},
		[]string{"op"},
	)
	recordsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_skipped_total",
			Help: "Total records skipped, by reason.",
		},
		[]string{"reason"},
	)
	batchCommits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_batch_commits_total",
			Help: "Total atomic write batches committed.",
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total orchestrator invocations, by outcome.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total errors, by type.",
		},
		[]string{"error_type"},
	)
	quotaDenied := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_quota_denied_total",
			Help: "Total API operations denied by the quota governor.",
		},
	)
	healthScore := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_extraction_health",
			Help: "Latest overall extraction health score in [0,1].",
		},
	)

	registry.MustRegister(pages, fetchDuration, itemsExtracted, recordsWritten,
		recordsSkipped, batchCommits, runs, errorsTotal, quotaDenied, healthScore)

	return &Metrics{
		Registry:         registry,
		PagesFetched:     pages,
		FetchDuration:    fetchDuration,
		ItemsExtracted:   itemsExtracted,
		RecordsWritten:   recordsWritten,
		RecordsSkipped:   recordsSkipped,
		BatchCommits:     batchCommits,
		RunsTotal:        runs,
		ErrorsTotal:      errorsTotal,
		QuotaDeniedTotal: quotaDenied,
		HealthScore:      healthScore,
	}
}

// IncPage increments the fetched-pages counter for a page kind.
func (m *Metrics) IncPage(kind string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(kind).Inc()
}

// ObserveFetch records one fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddItems adds to the extracted-items counter.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsExtracted.Add(float64(n))
}

// AddWritten adds to the written-records counter for an operation label.
func (m *Metrics) AddWritten(op string, n int) {
	if m == nil {
		return
	}
	m.RecordsWritten.WithLabelValues(op).Add(float64(n))
}

// IncSkipped increments the skipped-records counter for a reason.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.RecordsSkipped.WithLabelValues(reason).Inc()
}

// AddBatches adds to the committed-batches counter.
func (m *Metrics) AddBatches(n int) {
	if m == nil {
		return
	}
	m.BatchCommits.Add(float64(n))
}

// IncRun increments the runs counter for an outcome.
func (m *Metrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncQuotaDenied increments the quota-denied counter.
func (m *Metrics) IncQuotaDenied() {
	if m == nil {
		return
	}
	m.QuotaDeniedTotal.Inc()
}

// SetHealth records the latest overall health score.
func (m *Metrics) SetHealth(score float64) {
	if m == nil {
		return
	}
	m.HealthScore.Set(score)
}
