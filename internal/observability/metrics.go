package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper ingest service,
// organized by subsystem: searches, source API traffic, downloads, and
// ingestion runs. All collectors are registered via promauto against the
// default registry.
type Metrics struct {
	// SearchesTotal counts search operations by outcome ("ok", "error").
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes search duration in seconds.
	SearchDuration prometheus.Histogram

	// PapersPerSearch observes the distribution of candidates returned per search.
	PapersPerSearch prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to the scholarly index, labeled by endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed requests to the scholarly index, labeled by endpoint and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes scholarly-index request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// CacheHits counts candidate-cache lookups that found an entry.
	CacheHits prometheus.Counter

	// CacheMisses counts candidate-cache lookups that found nothing.
	CacheMisses prometheus.Counter

	// PDFDownloadsTotal counts PDF download attempts by outcome ("ok", "error").
	PDFDownloadsTotal *prometheus.CounterVec

	// PDFDownloadBytes observes the size of downloaded PDFs in bytes.
	PDFDownloadBytes prometheus.Histogram

	// IngestRunsTotal counts ingestion runs by outcome ("ok", "error").
	IngestRunsTotal *prometheus.CounterVec

	// IngestRunDuration observes end-to-end ingestion run duration in seconds.
	IngestRunDuration prometheus.Histogram

	// IngestCandidatesTotal counts per-candidate outcomes, labeled by
	// retrieval mode ("pdf", "abstract-only") and terminal status.
	IngestCandidatesTotal *prometheus.CounterVec

	// ProcessingWaitDuration observes how long uploads take to reach a
	// terminal processing status, in seconds.
	ProcessingWaitDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The namespace prefixes every metric name.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of paper searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		PapersPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of candidates returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}),

		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to the scholarly index",
		}, []string{"endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to the scholarly index",
		}, []string{"endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of scholarly-index requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_cache_hits_total",
			Help:      "Total number of candidate cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_cache_misses_total",
			Help:      "Total number of candidate cache misses",
		}),

		PDFDownloadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_downloads_total",
			Help:      "Total number of PDF download attempts by outcome",
		}, []string{"outcome"}),
		PDFDownloadBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_download_bytes",
			Help:      "Size of downloaded PDFs in bytes",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),

		IngestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Total number of ingestion runs by outcome",
		}, []string{"outcome"}),
		IngestRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of ingestion runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		IngestCandidatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_candidates_total",
			Help:      "Total number of ingested candidates by retrieval mode and status",
		}, []string{"mode", "status"}),
		ProcessingWaitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_wait_duration_seconds",
			Help:      "Time for uploaded files to reach a terminal processing status",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600, 900},
		}),
	}
}

// RecordSearch records a completed search operation.
func (m *Metrics) RecordSearch(outcome string, paperCount int, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(durationSeconds)
	if outcome == "ok" {
		m.PapersPerSearch.Observe(float64(paperCount))
	}
}

// RecordSourceRequest records a request to the scholarly index.
func (m *Metrics) RecordSourceRequest(endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to the scholarly index.
func (m *Metrics) RecordSourceRequestFailed(endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(endpoint, errorType).Inc()
}

// RecordCacheHit records a candidate cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a candidate cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordPDFDownload records a successful PDF download.
func (m *Metrics) RecordPDFDownload(sizeBytes int64) {
	m.PDFDownloadsTotal.WithLabelValues("ok").Inc()
	m.PDFDownloadBytes.Observe(float64(sizeBytes))
}

// RecordPDFDownloadFailed records a failed PDF download.
func (m *Metrics) RecordPDFDownloadFailed() {
	m.PDFDownloadsTotal.WithLabelValues("error").Inc()
}

// RecordIngestRun records a completed ingestion run.
func (m *Metrics) RecordIngestRun(outcome string, durationSeconds float64) {
	m.IngestRunsTotal.WithLabelValues(outcome).Inc()
	m.IngestRunDuration.Observe(durationSeconds)
}

// RecordIngestCandidate records the terminal outcome of one candidate.
func (m *Metrics) RecordIngestCandidate(mode, status string) {
	m.IngestCandidatesTotal.WithLabelValues(mode, status).Inc()
}

// RecordProcessingWait records how long an upload took to reach a terminal
// processing status.
func (m *Metrics) RecordProcessingWait(durationSeconds float64) {
	m.ProcessingWaitDuration.Observe(durationSeconds)
}
