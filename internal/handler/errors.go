package handler

// Client-facing error messages. Handlers and tests both reference these.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgServerError           = "Server error"
	ErrMsgUnavailable           = "Service temporarily unavailable"
	ErrMsgTimeout               = "Request timed out"
	ErrMsgInvalidCredentials    = "Invalid credentials"
	ErrMsgForbidden             = "Forbidden"
	ErrMsgConflict              = "Conflict"

	ErrMsgTableNotAllowedFormat  = "Table '%s' is not allowed."
	ErrMsgRecordNotFound         = "Record not found"
	ErrMsgInvalidRecordID        = "Invalid record id"
	ErrMsgConflictTargetRequired = "conflictTarget is required for upsert operation"
	ErrMsgConflictTargetType     = "conflictTarget must be a string"
	ErrMsgRecordType             = "record must be an object"
	ErrMsgBulkSyncMissingFields  = "Missing records (non-empty array) or conflictTarget for bulk sync"
	ErrMsgDataSyncFailed         = "Server error during data sync"
	ErrMsgInvalidPaging          = "Invalid %s parameter"
)

// Success messages
const (
	MsgLoggedIn              = "Logged in successfully"
	MsgRecordDeleted         = "Record deleted successfully"
	MsgRecordsSyncedFormat   = "%d records synced successfully to %s"
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

// Upsert body keys
const (
	fieldRecord         = "record"
	fieldConflictTarget = "conflictTarget"
)

// Log messages
const (
	LogMsgEncodeResponseFailed = "Failed to encode JSON response"
	LogMsgWriteResponseFailed  = "Failed to write response buffer"
	LogMsgDecodeFailed         = "Failed to decode request"
	LogMsgTableRejected        = "Table outside allow-list requested"
	LogMsgRestrictedTable      = "Restricted table requested without team-leader role"
	LogMsgReadinessFailed      = "Readiness check failed"
)
