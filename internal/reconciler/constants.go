package reconciler

import "time"

// Shared column names
const (
	ColumnID        = "id"
	ColumnCreatedOn = "created_on"
	ColumnUpdatedOn = "updated_on"
	ColumnPassword  = "password"
	ColumnUsername  = "username"
	ColumnAssigned  = "assigned"

	ColumnAssignedVersion = "assigned_version"
)

// Defaults
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxBatch        = 1000
	DefaultReplayCacheSize = 1024
	DefaultReplayCacheTTL  = 10 * time.Minute
)

// Error messages
const (
	ErrMsgTableNotAllowed        = "table is not allowed"
	ErrMsgEmptyRecord            = "record is empty"
	ErrMsgConflictTargetRequired = "conflict target is required"
	ErrMsgBatchTooLarge          = "batch exceeds the maximum record count"
	ErrMsgEmptyBatch             = "batch has no records"
	ErrMsgRegistryVerifyFailed   = "failed to verify table registry"
	ErrMsgRegistryMismatch       = "table registry does not match database schema"
	ErrMsgPasswordHashFailed     = "failed to hash password"
	ErrMsgSchemaRegisterFailed   = "failed to register table schema"
)

// Log messages
const (
	LogMsgBatchApplied   = "Sync batch applied"
	LogMsgBatchFailed    = "Sync batch failed"
	LogMsgBatchReplayed  = "Sync batch replayed from cache"
	LogMsgRecordUpserted = "Record upserted"
	LogMsgRecordDeleted  = "Record deleted"
	LogMsgPublishFailed  = "Failed to publish sync event"
	LogMsgRegistryOK     = "Table registry verified"
)
