package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Sync Metrics
var (
	SyncUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncUpserts,
			Help: HelpTextSyncUpserts,
		},
		[]string{LabelTable, LabelOutcome},
	)

	SyncBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncBatches,
			Help: HelpTextSyncBatches,
		},
		[]string{LabelTable, LabelStatus},
	)

	SyncBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameSyncBatchSize,
			Help:    HelpTextSyncBatchSize,
			Buckets: BatchSizeBuckets,
		},
		[]string{LabelTable},
	)

	SyncBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameSyncBatchDuration,
			Help:    HelpTextSyncBatchDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelTable},
	)

	SyncReplayHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncReplayHits,
			Help: HelpTextSyncReplayHits,
		},
		[]string{LabelTable},
	)

	SyncTxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSyncTxRetries,
			Help: HelpTextSyncTxRetries,
		},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameLogins,
			Help: HelpTextLogins,
		},
		[]string{LabelResult},
	)
)

// RecordUpsert counts one single-record upsert outcome
func RecordUpsert(table string, inserted bool, err error) {
	switch {
	case err != nil:
		SyncUpserts.WithLabelValues(table, OutcomeError).Inc()
	case inserted:
		SyncUpserts.WithLabelValues(table, OutcomeInserted).Inc()
	default:
		SyncUpserts.WithLabelValues(table, OutcomeUpdated).Inc()
	}
}
