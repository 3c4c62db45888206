package eventlog

// Log messages - service events
const (
	LogMsgPayloadDecodeFailed = "Sync event payload could not be decoded, skipping log"
	LogMsgFailedToLogEvent    = "Failed to write sync log entry"
	LogMsgEventLogged         = "Sync log entry written"
)

// Log messages - cleanup job
const (
	LogMsgCleanupJobStarting  = "Starting sync log cleanup job"
	LogMsgCleanupJobFailed    = "Sync log cleanup failed"
	LogMsgCleanupJobCompleted = "Sync log cleanup completed"
)

// Log field keys - structured logging fields
const (
	LogFieldType          = "type"
	LogFieldTable         = "table"
	LogFieldError         = "error"
	LogFieldRetentionDays = "retentionDays"
	LogFieldDuration      = "duration"
	LogFieldDeletedCount  = "deletedCount"
)

// DefaultListLimit caps Recent when the filter sets no limit
const DefaultListLimit = 100
