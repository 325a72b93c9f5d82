// Package observability provides logging and metrics support for the
// paper ingest service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, downloads, and ingestion runs
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("query", query).Msg("search started")
//
// Tag a logger with a subsystem:
//
//	logger = observability.WithComponent(logger, "pipeline")
//
// # Metrics
//
// Initialize and record metrics:
//
//	metrics := observability.NewMetrics("paper_ingest")
//	metrics.RecordSearch("ok", 20, elapsed.Seconds())
//	metrics.RecordIngestCandidate("pdf", "completed")
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - component: Subsystem emitting the entry
//   - query: Search query text
//   - paper_id: Canonical paper identifier
//   - run_id: Ingestion run identifier
//   - knowledge_base: Target knowledge base name
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
