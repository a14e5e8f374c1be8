package crawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ToolsTotal      prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	DuplicatesTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Total page fetches by final result.",
		},
		[]string{"result"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_fetch_duration_seconds",
			Help:    "HTTP request latency per fetch attempt.",
			Buckets: prometheus.DefBuckets,
		},
	)
	tools := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_tools_extracted_total",
			Help: "Total tool records appended to the aggregate collection.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_retries_total",
			Help: "Total retry attempts after failed fetches.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_duplicate_urls_total",
			Help: "Records whose URL was already seen on an earlier page.",
		},
	)

	registry.MustRegister(pages, fetchDuration, tools, retries, errorsTotal, duplicates)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		FetchDuration:   fetchDuration,
		ToolsTotal:      tools,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		DuplicatesTotal: duplicates,
	}
}

// IncPage increments the page counter for a result label.
func (m *Metrics) IncPage(result string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records the latency of one fetch attempt.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddTools adds extracted records to the tools counter.
func (m *Metrics) AddTools(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ToolsTotal.Add(float64(n))
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncDuplicate increments the duplicate URL counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}
