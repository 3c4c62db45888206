package event

import "time"

// EventSchemaVersion is stamped on every event this service publishes
const EventSchemaVersion = "1.0"

const (
	// RetryQueueBufferSize bounds batch events waiting for a retry. A full
	// queue sends new failures straight to the dead-letter file.
	RetryQueueBufferSize = 1000

	// MaxRetryDelay caps the backoff between publish attempts
	MaxRetryDelay = time.Minute

	// DeadLetterFilePermissions keeps dead-lettered payloads (subjects,
	// table names, error text) readable by the service user only
	DeadLetterFilePermissions = 0o600
)

// Log attribute keys
const (
	LogKeyEventType = "event_type"
	LogKeyTable     = "table"
	LogKeyAttempt   = "attempt"
	LogKeyError     = "error"
)

// Log messages
const (
	LogMsgEventPublishFailed     = "Sync event publish failed, queued for retry"
	LogMsgRetryQueueFull         = "Sync event retry queue full, dead-lettering"
	LogMsgDeadLetterWriteFailed  = "Failed to write sync event to dead letter"
	LogMsgEventDeadLettered      = "Sync event dead-lettered"
	LogMsgEventRetryExhausted    = "Sync event retries exhausted, dead-lettering"
	LogMsgEventRetryFailed       = "Sync event retry failed"
	LogMsgEventRetrySucceeded    = "Sync event delivered on retry"
	LogMsgQueueDrainedShutdown   = "Drained sync event retry queue during shutdown"
	LogMsgShutdownTimeout        = "Resilient publisher shutdown timed out"
	LogMsgDeadLetterWriteFailedS = "Failed to write sync event to dead letter during shutdown"

	LogMsgHandlerErrorFormat = "encountered %d errors while handling event %s: %v"
)

// RetryDelay doubles base for every attempt after the first and caps the
// result at MaxRetryDelay. Attempts below 1 count as 1.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return min(d, MaxRetryDelay)
}
