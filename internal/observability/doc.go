// Package observability provides logging and metrics support for the
// bibliographic ingest pipeline.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/data/runs/2024-06/ingest.log",
//	})
//
// Attach run, stage and candidate fields:
//
//	logger = observability.WithRunContext(logger, runID, "pubmed")
//	logger = observability.WithStageContext(logger, "reconcile", "pmc")
//	clog := observability.WithCandidateContext(logger, ids)
//	clog.Warn().Msg("primary provider had no record")
//
// # Metrics
//
//	metrics := observability.NewMetrics("ingest")
//	metrics.RecordOutcome(string(domain.CategorySkipped), elapsed.Seconds())
//
// Every Record* method tolerates a nil *Metrics.
//
// # Standard Fields
//
//   - run_id: tracker run identifier
//   - source: ingest source (pubmed, nsf, govinfo)
//   - stage: pipeline stage (retrieve, reconcile, dedup, process, report)
//   - stream: identifier stream within a stage (pubmed, pmc)
//   - pmid, pmcid, doi: candidate identifiers
//   - provider: external API name
package observability
