package syncclient

import (
	"time"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// Defaults
const (
	DefaultBatchSize      = 100
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 5
	DefaultBackoffMin     = 1 * time.Second
	DefaultBackoffMax     = 60 * time.Second
	DefaultPullPageSize   = 500
)

// API paths
const (
	PathLogin     = "/api/v1/auth/login"
	PathData      = "/api/v1/data/"
	PathBulkSync  = "/api/v1/data/bulk-sync/"
	TableStores   = "stores"
	ConflictByKey = domain.FieldClientUUID
)

// Headers
const (
	HeaderAuthorization    = "Authorization"
	HeaderContentType      = "Content-Type"
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replayed"
	ContentTypeJSON        = "application/json"
	BearerPrefix           = "Bearer "
)

// Error messages
const (
	ErrMsgBaseURLRequired  = "base URL is required"
	ErrMsgStoreRequired    = "local store is required"
	ErrMsgSyncInProgress   = "sync already in progress"
	ErrMsgBuildRequest     = "failed to build request"
	ErrMsgEncodeBody       = "failed to encode request body"
	ErrMsgDecodeResponse   = "failed to decode response"
	ErrMsgMapRecord        = "failed to map record"
	ErrMsgReadPending      = "failed to read pending records"
	ErrMsgMarkSynced       = "failed to mark records synced"
	ErrMsgStoreLocalRecord = "failed to store pulled record"
	ErrMsgUnexpectedStatus = "unexpected status"
)

// Log messages
const (
	LogMsgRetrying        = "Sync request failed, retrying"
	LogMsgBatchSent       = "Sync batch sent"
	LogMsgCollectionDone  = "Collection synced"
	LogMsgCollectionSkip  = "Collection sync skipped, already running"
	LogMsgStoresPulled    = "Stores pulled"
	LogMsgLoggedIn        = "Logged in"
	LogMsgNoSyncProgress  = "No records marked synced, stopping collection"
	LogMsgSyncAllFinished = "Sync finished"
)
