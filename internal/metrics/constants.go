package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Sync metric names
const (
	MetricNameSyncUpserts       = "sync_upserts_total"
	MetricNameSyncBatches       = "sync_batches_total"
	MetricNameSyncBatchSize     = "sync_batch_records"
	MetricNameSyncBatchDuration = "sync_batch_duration_seconds"
	MetricNameSyncReplayHits    = "sync_replay_hits_total"
	MetricNameSyncTxRetries     = "sync_tx_retries_total"
	MetricNameLogins            = "auth_logins_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"

	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"

	HelpTextSyncUpserts       = "Records written by upsert, by table and outcome"
	HelpTextSyncBatches       = "Bulk-sync batches by table and status"
	HelpTextSyncBatchSize     = "Number of records per bulk-sync batch"
	HelpTextSyncBatchDuration = "Bulk-sync batch latency in seconds"
	HelpTextSyncReplayHits    = "Bulk-sync requests answered from the idempotency cache"
	HelpTextSyncTxRetries     = "Bulk-sync transactions retried after serialization failure or deadlock"
	HelpTextLogins            = "Login attempts by result"
)

// ============================================================================
// Metric Label Names
// ============================================================================

const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelType    = "type"
	LabelTable   = "table"
	LabelOutcome = "outcome"
	LabelResult  = "result"
)

// Outcome label values
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeError    = "error"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// BatchSizeBuckets covers single records up to the bulk-sync cap
var BatchSizeBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}

// UnmatchedRoute labels requests that did not match a chi route
const UnmatchedRoute = "unmatched"

// ============================================================================
// Log Messages
// ============================================================================

const (
	LogMsgPayloadDecodeFailed = "Event payload could not be decoded for metrics"
	LogMsgMetricsRecorded     = "Metrics recorded for event"
)
