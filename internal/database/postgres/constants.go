package postgres

import "time"

// PostgreSQL Error Codes
const (
	PgErrorCodeUniqueViolation           = "23505"
	PgErrorCodeForeignKeyViolation       = "23503"
	PgErrorCodeNotNullViolation          = "23502"
	PgErrorCodeCheckViolation            = "23514"
	PgErrorCodeNoConflictConstraint      = "42P10"
	PgErrorCodeUndefinedColumn           = "42703"
	PgErrorCodeInvalidTextRepresentation = "22P02"
	PgErrorCodeInvalidDatetimeFormat     = "22007"
	PgErrorCodeDatetimeFieldOverflow     = "22008"
	PgErrorCodeNumericOutOfRange         = "22003"
	PgErrorCodeSerializationFailure      = "40001"
	PgErrorCodeDeadlockDetected          = "40P01"
)

// Transaction retry
const (
	DefaultTxMaxRetries = 3
	DefaultTxRetryBase  = 50 * time.Millisecond
)

// Sync log defaults
const (
	DefaultSyncLogLimit = 100
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
)

// Error Messages - Sync Operations
const (
	ErrMsgFailedToListRecords  = "failed to list records"
	ErrMsgFailedToGetRecord    = "failed to get record"
	ErrMsgFailedToUpsertRecord = "failed to upsert record"
	ErrMsgFailedToApplyBatch   = "failed to apply sync batch"
	ErrMsgFailedToDeleteRecord = "failed to delete record"
	ErrMsgFailedToReadColumns  = "failed to read table columns"
	ErrMsgFailedToDecodeRow    = "failed to decode row"
	ErrMsgFailedToAdvanceSeq   = "failed to advance id sequence"
)

// Error Messages - User Operations
const (
	ErrMsgFailedToGetUserByUsername = "failed to get user by username"
	ErrMsgFailedToRecordLogin       = "failed to record login"
)

// Error Messages - Sync Log Operations
const (
	ErrMsgFailedToLogBatch       = "failed to write sync log entry"
	ErrMsgFailedToListSyncLog    = "failed to list sync log"
	ErrMsgFailedToCleanupSyncLog = "failed to clean up sync log"
)

// Log Messages
const (
	LogMsgRetryingSyncTx = "Retrying sync transaction"
	LogMsgFailedRollback = "Failed to rollback transaction"
)
