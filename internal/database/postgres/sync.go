package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/internal/metrics"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SyncRepository is the generic upsert store over the allow-listed tables
type SyncRepository struct {
	db         *pgxpool.Pool
	maxRetries uint64
	retryBase  time.Duration
}

// NewSyncRepository creates a new SyncRepository
func NewSyncRepository(db *pgxpool.Pool) *SyncRepository {
	return &SyncRepository{
		db:         db,
		maxRetries: DefaultTxMaxRetries,
		retryBase:  DefaultTxRetryBase,
	}
}

// List returns rows of table in the requested order
func (r *SyncRepository) List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error) {
	var qb strings.Builder
	fmt.Fprintf(&qb, "SELECT to_jsonb(t.*) FROM %s AS t", quoteIdent(table))

	if opts.OrderBy != "" {
		dir := "ASC"
		if opts.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&qb, " ORDER BY t.%s %s, t.id %s", quoteIdent(opts.OrderBy), dir, dir)
	}

	args := []interface{}{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&qb, " LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&qb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, mapError(ErrMsgFailedToListRecords, err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, mapError(ErrMsgFailedToListRecords, err)
		}
		rec, err := decodeRow(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ErrMsgFailedToListRecords, err)
	}
	return records, nil
}

// Get returns the row of table with the given id
func (r *SyncRepository) Get(ctx context.Context, table string, id int64) (domain.Record, error) {
	query := fmt.Sprintf("SELECT to_jsonb(t.*) FROM %s AS t WHERE t.id = $1", quoteIdent(table))

	var raw []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s id %d", domain.ErrNotFound, table, id)
		}
		return nil, mapError(ErrMsgFailedToGetRecord, err)
	}
	return decodeRow(raw)
}

// Upsert writes one record outside of any batch
func (r *SyncRepository) Upsert(ctx context.Context, table string, record domain.Record, conflict []string) (domain.UpsertResult, error) {
	return upsertOne(ctx, r.db, table, record, conflict)
}

// BulkUpsert applies records in order inside one transaction. Serialization
// failures and deadlocks restart the whole transaction.
func (r *SyncRepository) BulkUpsert(ctx context.Context, table string, records []domain.Record, conflict []string) ([]domain.UpsertResult, error) {
	var results []domain.UpsertResult
	attempt := 0

	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.SyncTxRetries.Inc()
			logger.FromContext(ctx).Warn(LogMsgRetryingSyncTx, logger.AttrKeyTable, table, "attempt", attempt)
		}

		out, err := r.applyBatch(ctx, table, records, conflict)
		if err != nil {
			if isRetryableTxError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		results = out
		return nil
	})
	if err != nil {
		return nil, mapError(ErrMsgFailedToApplyBatch, err)
	}
	return results, nil
}

func (r *SyncRepository) applyBatch(ctx context.Context, table string, records []domain.Record, conflict []string) ([]domain.UpsertResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	results := make([]domain.UpsertResult, 0, len(records))
	for i, rec := range records {
		res, err := upsertOne(ctx, tx, table, rec, conflict)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		results = append(results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return results, nil
}

// Delete removes the row of table with the given id
func (r *SyncRepository) Delete(ctx context.Context, table string, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", quoteIdent(table))

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return mapError(ErrMsgFailedToDeleteRecord, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s id %d", domain.ErrNotFound, table, id)
	}
	return nil
}

// TableColumns returns the live column set of table in the current schema
func (r *SyncRepository) TableColumns(ctx context.Context, table string) (map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`
	rows, err := r.db.Query(ctx, query, table)
	if err != nil {
		return nil, mapError(ErrMsgFailedToReadColumns, err)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, mapError(ErrMsgFailedToReadColumns, err)
		}
		cols[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ErrMsgFailedToReadColumns, err)
	}
	return cols, nil
}

// upsertOne runs the insert-or-overwrite statement for a single record.
// Postgres casts each JSON value to its column type via jsonb_populate_record.
func upsertOne(ctx context.Context, q querier, table string, record domain.Record, conflict []string) (domain.UpsertResult, error) {
	if len(record) == 0 {
		return domain.UpsertResult{}, fmt.Errorf("%w: empty record", domain.ErrInvalidInput)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var raw []byte
	var inserted bool
	err = q.QueryRow(ctx, buildUpsertSQL(table, sortedColumns(record), conflict), string(payload)).Scan(&raw, &inserted)
	if err != nil {
		return domain.UpsertResult{}, mapError(ErrMsgFailedToUpsertRecord, err)
	}

	row, err := decodeRow(raw)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	if _, explicit := record[domain.FieldID]; explicit && inserted {
		if err := advanceSequence(ctx, q, table, row[domain.FieldID]); err != nil {
			return domain.UpsertResult{}, err
		}
	}
	return domain.UpsertResult{Row: row, Inserted: inserted}, nil
}

// advanceSequenceSQL moves the id sequence of $1 up to $2. It never moves a
// sequence backwards and does nothing for tables without one.
const advanceSequenceSQL = `
	SELECT setval(s.seq, $2::text::bigint)
	FROM (SELECT pg_get_serial_sequence($1, 'id') AS seq) s
	WHERE s.seq IS NOT NULL
	  AND $2::text::bigint > COALESCE(pg_sequence_last_value(s.seq::regclass), 0)
`

// advanceSequence keeps the SERIAL sequence ahead of ids inserted
// explicitly, so later inserts without an id do not collide with them.
func advanceSequence(ctx context.Context, q querier, table string, id interface{}) error {
	if id == nil {
		return nil
	}
	if _, err := q.Exec(ctx, advanceSequenceSQL, quoteIdent(table), fmt.Sprint(id)); err != nil {
		return mapError(ErrMsgFailedToAdvanceSeq, err)
	}
	return nil
}

// buildUpsertSQL renders
//
//	INSERT INTO t AS target (cols) SELECT cols FROM jsonb_populate_record(NULL::t, $1)
//	ON CONFLICT (keys) DO UPDATE SET col = EXCLUDED.col, ...
//	RETURNING to_jsonb(target.*), target.xmax = 0
//
// xmax is zero only for rows created by this statement.
func buildUpsertSQL(table string, cols, conflict []string) string {
	quoted := make([]string, len(cols))
	sets := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i])
	}
	keys := make([]string, len(conflict))
	for i, c := range conflict {
		keys[i] = quoteIdent(c)
	}

	colList := strings.Join(quoted, ", ")
	t := quoteIdent(table)

	var qb strings.Builder
	fmt.Fprintf(&qb, "INSERT INTO %s AS target (%s) ", t, colList)
	fmt.Fprintf(&qb, "SELECT %s FROM jsonb_populate_record(NULL::%s, $1::jsonb) ", colList, t)
	fmt.Fprintf(&qb, "ON CONFLICT (%s) DO UPDATE SET %s ", strings.Join(keys, ", "), strings.Join(sets, ", "))
	qb.WriteString("RETURNING to_jsonb(target.*), (target.xmax = 0)")
	return qb.String()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func decodeRow(raw []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rec domain.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUnderlyingStore, ErrMsgFailedToDecodeRow, err)
	}
	return rec, nil
}

// mapError translates driver errors into domain sentinels. Constraint
// failures match both ErrConstraintViolation and ErrUnderlyingStore.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrConstraintViolation) ||
		errors.Is(err, domain.ErrUnderlyingStore) || errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrorCodeUniqueViolation, PgErrorCodeForeignKeyViolation,
			PgErrorCodeNotNullViolation, PgErrorCodeCheckViolation:
			return fmt.Errorf("%w: %w: %s: %s", domain.ErrConstraintViolation, domain.ErrUnderlyingStore, op, pgErr.Message)
		case PgErrorCodeNoConflictConstraint, PgErrorCodeUndefinedColumn,
			PgErrorCodeInvalidTextRepresentation, PgErrorCodeInvalidDatetimeFormat,
			PgErrorCodeDatetimeFieldOverflow, PgErrorCodeNumericOutOfRange:
			return fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, op, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUnderlyingStore, op, err)
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case PgErrorCodeSerializationFailure, PgErrorCodeDeadlockDetected:
		return true
	default:
		return false
	}
}
