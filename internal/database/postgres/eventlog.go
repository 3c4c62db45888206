package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
)

type syncLogRepository struct {
	db *pgxpool.Pool
}

// NewSyncLogRepository creates a new PostgreSQL sync log repository
func NewSyncLogRepository(db *pgxpool.Pool) eventlog.Repository {
	return &syncLogRepository{db: db}
}

// LogBatch stores one batch outcome
func (r *syncLogRepository) LogBatch(ctx context.Context, entry domain.SyncLogEntry) error {
	query := `
		INSERT INTO sync_log (table_name, subject, status, conflict_target, record_count,
			inserted, updated, duration_ms, error, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))
	`

	var createdAt interface{}
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt
	}

	_, err := r.db.Exec(ctx, query,
		entry.TableName,
		strPtr(entry.Subject),
		entry.Status,
		strPtr(entry.ConflictTarget),
		entry.RecordCount,
		entry.Inserted,
		entry.Updated,
		entry.DurationMs,
		strPtr(entry.Error),
		strPtr(entry.RequestID),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToLogBatch, err)
	}
	return nil
}

// ListEntries retrieves sync log entries based on filter criteria
func (r *syncLogRepository) ListEntries(ctx context.Context, filter eventlog.Filter) ([]domain.SyncLogEntry, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, table_name, COALESCE(subject, ''), status, COALESCE(conflict_target, ''),
			record_count, inserted, updated, duration_ms, COALESCE(error, ''),
			COALESCE(request_id, ''), created_at
		FROM sync_log
		WHERE 1=1`)

	args := []interface{}{}
	argNum := 1

	if filter.TableName != "" {
		fmt.Fprintf(&queryBuilder, " AND table_name = $%d", argNum)
		args = append(args, filter.TableName)
		argNum++
	}

	if filter.Status != "" {
		fmt.Fprintf(&queryBuilder, " AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	if filter.Since != nil {
		fmt.Fprintf(&queryBuilder, " AND created_at >= $%d", argNum)
		args = append(args, *filter.Since)
		argNum++
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSyncLogLimit
	}
	fmt.Fprintf(&queryBuilder, " LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListSyncLog, err)
	}
	defer rows.Close()

	return scanSyncLog(rows)
}

// CleanupOldEntries removes entries older than the specified number of days
func (r *syncLogRepository) CleanupOldEntries(ctx context.Context, retentionDays int) (int64, error) {
	query := `
		DELETE FROM sync_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`

	result, err := r.db.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToCleanupSyncLog, err)
	}

	return result.RowsAffected(), nil
}

func scanSyncLog(rows pgx.Rows) ([]domain.SyncLogEntry, error) {
	entries := []domain.SyncLogEntry{}

	for rows.Next() {
		var e domain.SyncLogEntry
		err := rows.Scan(
			&e.ID,
			&e.TableName,
			&e.Subject,
			&e.Status,
			&e.ConflictTarget,
			&e.RecordCount,
			&e.Inserted,
			&e.Updated,
			&e.DurationMs,
			&e.Error,
			&e.RequestID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListSyncLog, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListSyncLog, err)
	}

	return entries, nil
}
