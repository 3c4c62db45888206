package repository

import (
	"context"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// Sync is the generic table store behind the sync reconciler. Table and
// column names reaching it have already been checked against the table
// registry; implementations still quote them.
type Sync interface {
	// List returns rows of table ordered by opts
	List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error)

	// Get returns the row with the given id or domain.ErrNotFound
	Get(ctx context.Context, table string, id int64) (domain.Record, error)

	// Upsert inserts record or, on conflict with the unique constraint over
	// conflict, overwrites every column present in record
	Upsert(ctx context.Context, table string, record domain.Record, conflict []string) (domain.UpsertResult, error)

	// BulkUpsert applies every record in order inside one transaction
	BulkUpsert(ctx context.Context, table string, records []domain.Record, conflict []string) ([]domain.UpsertResult, error)

	// Delete removes the row with the given id or returns domain.ErrNotFound
	Delete(ctx context.Context, table string, id int64) error

	// TableColumns returns column name to data type for table
	TableColumns(ctx context.Context, table string) (map[string]string, error)
}
