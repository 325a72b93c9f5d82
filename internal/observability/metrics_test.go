package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so each test uses a
// unique namespace to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paper_ingest_new")

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.PapersPerSearch)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRequestsFailed)
	assert.NotNil(t, m.SourceRequestDuration)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.PDFDownloadsTotal)
	assert.NotNil(t, m.PDFDownloadBytes)
	assert.NotNil(t, m.IngestRunsTotal)
	assert.NotNil(t, m.IngestRunDuration)
	assert.NotNil(t, m.IngestCandidatesTotal)
	assert.NotNil(t, m.ProcessingWaitDuration)
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics("test_record_search")

	m.RecordSearch("ok", 15, 1.2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("ok")))

	histCount, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)

	papersCount, err := getHistogramSampleCount(m.PapersPerSearch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), papersCount)
}

func TestRecordSearchError(t *testing.T) {
	m := NewMetrics("test_record_search_error")

	m.RecordSearch("error", 0, 0.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("error")))

	// Errors never observe a paper count.
	papersCount, err := getHistogramSampleCount(m.PapersPerSearch)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), papersCount)
}

func TestRecordSourceRequest(t *testing.T) {
	m := NewMetrics("test_source_request")

	m.RecordSourceRequest("/works", 0.25)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("/works")))
}

func TestRecordSourceRequestFailed(t *testing.T) {
	m := NewMetrics("test_source_request_failed")

	m.RecordSourceRequestFailed("/works", "http_403")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("/works", "http_403")))
}

func TestRecordCacheHitMiss(t *testing.T) {
	m := NewMetrics("test_cache_hit_miss")

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses))
}

func TestRecordPDFDownload(t *testing.T) {
	m := NewMetrics("test_pdf_download")

	m.RecordPDFDownload(2 << 20)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PDFDownloadsTotal.WithLabelValues("ok")))

	histCount, err := getHistogramSampleCount(m.PDFDownloadBytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordPDFDownloadFailed(t *testing.T) {
	m := NewMetrics("test_pdf_download_failed")

	m.RecordPDFDownloadFailed()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PDFDownloadsTotal.WithLabelValues("error")))
}

func TestRecordIngestRun(t *testing.T) {
	m := NewMetrics("test_ingest_run")

	m.RecordIngestRun("ok", 42.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestRunsTotal.WithLabelValues("ok")))

	histCount, err := getHistogramSampleCount(m.IngestRunDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordIngestCandidate(t *testing.T) {
	m := NewMetrics("test_ingest_candidate")

	m.RecordIngestCandidate("pdf", "completed")
	m.RecordIngestCandidate("abstract-only", "failed")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestCandidatesTotal.WithLabelValues("pdf", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestCandidatesTotal.WithLabelValues("abstract-only", "failed")))
}

func TestRecordProcessingWait(t *testing.T) {
	m := NewMetrics("test_processing_wait")

	m.RecordProcessingWait(12.5)
	histCount, err := getHistogramSampleCount(m.ProcessingWaitDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var out = &dto.Metric{}
	if err := m.Write(out); err != nil {
		return 0, err
	}

	return out.Histogram.GetSampleCount(), nil
}
