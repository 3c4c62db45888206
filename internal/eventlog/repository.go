package eventlog

import (
	"context"
	"time"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// Filter narrows sync log queries
type Filter struct {
	TableName string
	Status    string
	Since     *time.Time
	Limit     int
}

// Repository defines the storage for the sync log
type Repository interface {
	// LogBatch stores one batch outcome
	LogBatch(ctx context.Context, entry domain.SyncLogEntry) error

	// ListEntries returns entries newest first
	ListEntries(ctx context.Context, filter Filter) ([]domain.SyncLogEntry, error)

	// CleanupOldEntries removes entries older than the specified number of days
	CleanupOldEntries(ctx context.Context, retentionDays int) (int64, error)
}
