package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ingest pipeline.
// Metrics are organized by subsystem: providers, stages, outcomes, and
// repository writes. All collectors are registered via promauto with the
// default Prometheus registry.
type Metrics struct {
	// ProviderRequestsTotal counts requests to external APIs, labeled by provider and endpoint.
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderRequestsFailed counts failed requests, labeled by provider, endpoint, and error type.
	ProviderRequestsFailed *prometheus.CounterVec

	// ProviderRequestDuration observes request duration to external APIs in seconds.
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRateLimited counts 429 responses, labeled by provider.
	ProviderRateLimited *prometheus.CounterVec

	// ProviderFallbacks counts metadata resolutions that fell back past the primary provider.
	ProviderFallbacks *prometheus.CounterVec

	// StageCursor reports the current cursor of each stage and stream.
	StageCursor *prometheus.GaugeVec

	// StageCompleted counts stage completions, labeled by stage.
	StageCompleted *prometheus.CounterVec

	// IdentifiersRetrieved counts identifiers written to raw id logs, labeled by stream.
	IdentifiersRetrieved *prometheus.CounterVec

	// DuplicatesRemoved counts reconciled records dropped by the dedup pass.
	DuplicatesRemoved prometheus.Counter

	// Outcomes counts recorded outcomes, labeled by category.
	Outcomes *prometheus.CounterVec

	// CandidateDuration observes the processing time of one candidate in seconds.
	CandidateDuration prometheus.Histogram

	// WorksCreated counts works persisted in the repository.
	WorksCreated prometheus.Counter

	// WorksRolledBack counts works destroyed after a partial creation failure.
	WorksRolledBack prometheus.Counter

	// FilesAttached counts file sets attached to works.
	FilesAttached prometheus.Counter

	// BytesFetched counts full-text bytes fetched, labeled by strategy.
	BytesFetched *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ProviderRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of requests to external bibliographic APIs",
		}, []string{"provider", "endpoint"}),
		ProviderRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_failed_total",
			Help:      "Total number of failed requests to external bibliographic APIs",
		}, []string{"provider", "endpoint", "error_type"}),
		ProviderRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of requests to external bibliographic APIs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "endpoint"}),
		ProviderRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_rate_limited_total",
			Help:      "Total number of rate-limited responses from external APIs",
		}, []string{"provider"}),
		ProviderFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Total number of metadata resolutions served by a non-primary provider",
		}, []string{"provider"}),

		StageCursor: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_cursor",
			Help:      "Current cursor position of each pipeline stage",
		}, []string{"stage"}),
		StageCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_completed_total",
			Help:      "Total number of pipeline stage completions",
		}, []string{"stage"}),
		IdentifiersRetrieved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifiers_retrieved_total",
			Help:      "Total number of candidate identifiers retrieved",
		}, []string{"stream"}),
		DuplicatesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Total number of reconciled records removed as cross-stream duplicates",
		}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Total number of candidate outcomes recorded",
		}, []string{"category"}),
		CandidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_duration_seconds",
			Help:      "Time spent processing one candidate in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		WorksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "works_created_total",
			Help:      "Total number of repository works created",
		}),
		WorksRolledBack: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "works_rolled_back_total",
			Help:      "Total number of works destroyed after a partial creation failure",
		}),
		FilesAttached: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_attached_total",
			Help:      "Total number of files attached to works",
		}),
		BytesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulltext_bytes_fetched_total",
			Help:      "Total number of full-text bytes fetched",
		}, []string{"strategy"}),
	}
}

// RecordProviderRequest records a request to an external API.
// A nil receiver is a no-op so components can run without metrics in tests.
func (m *Metrics) RecordProviderRequest(provider, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, endpoint).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, endpoint).Observe(durationSeconds)
}

// RecordProviderRequestFailed records a failed request to an external API.
func (m *Metrics) RecordProviderRequestFailed(provider, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.ProviderRequestsFailed.WithLabelValues(provider, endpoint, errorType).Inc()
}

// RecordProviderRateLimited records a rate limit response from a provider.
func (m *Metrics) RecordProviderRateLimited(provider string) {
	if m == nil {
		return
	}
	m.ProviderRateLimited.WithLabelValues(provider).Inc()
}

// RecordProviderFallback records a metadata resolution served by a non-primary provider.
func (m *Metrics) RecordProviderFallback(provider string) {
	if m == nil {
		return
	}
	m.ProviderFallbacks.WithLabelValues(provider).Inc()
}

// RecordStageCursor sets the cursor gauge of a stage.
func (m *Metrics) RecordStageCursor(stage string, cursor int) {
	if m == nil {
		return
	}
	m.StageCursor.WithLabelValues(stage).Set(float64(cursor))
}

// RecordStageCompleted records that a stage has completed.
func (m *Metrics) RecordStageCompleted(stage string) {
	if m == nil {
		return
	}
	m.StageCompleted.WithLabelValues(stage).Inc()
}

// RecordIdentifiersRetrieved records identifiers appended to a raw id log.
func (m *Metrics) RecordIdentifiersRetrieved(stream string, count int) {
	if m == nil {
		return
	}
	m.IdentifiersRetrieved.WithLabelValues(stream).Add(float64(count))
}

// RecordDuplicatesRemoved records reconciled records dropped by deduplication.
func (m *Metrics) RecordDuplicatesRemoved(count int) {
	if m == nil {
		return
	}
	m.DuplicatesRemoved.Add(float64(count))
}

// RecordOutcome records one outcome and the time spent on its candidate.
func (m *Metrics) RecordOutcome(category string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(category).Inc()
	m.CandidateDuration.Observe(durationSeconds)
}

// RecordWorkCreated records a persisted work.
func (m *Metrics) RecordWorkCreated() {
	if m == nil {
		return
	}
	m.WorksCreated.Inc()
}

// RecordWorkRolledBack records a work destroyed during rollback.
func (m *Metrics) RecordWorkRolledBack() {
	if m == nil {
		return
	}
	m.WorksRolledBack.Inc()
}

// RecordFileAttached records an attached file and the bytes fetched for it.
func (m *Metrics) RecordFileAttached(strategy string, bytes int64) {
	if m == nil {
		return
	}
	m.FilesAttached.Inc()
	m.BytesFetched.WithLabelValues(strategy).Add(float64(bytes))
}
