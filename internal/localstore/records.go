package localstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// PendingRecord is an unsynced record and the revision it was read at
type PendingRecord struct {
	Record   domain.Record
	Revision int64
}

// SyncMark acknowledges one record at the revision that was sent
type SyncMark struct {
	ID       int64
	Revision int64
}

const selectColumns = "id, uuid, created_on, data"

// Insert adds a record. created_on and uuid are stamped when absent; local
// collections assign the id.
func (s *Store) Insert(ctx context.Context, collection string, rec domain.Record) (domain.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyRecord)
	}

	var out domain.Record
	err = s.withDB(func(db *sql.DB) error {
		out, err = s.insertRow(ctx, db, c, rec)
		return err
	})
	return out, err
}

func (s *Store) insertRow(ctx context.Context, q queryer, c Collection, rec domain.Record) (domain.Record, error) {
	r := rec.Clone()

	createdOn, err := s.createdOn(r)
	if err != nil {
		return nil, err
	}
	id := newUUID()
	if v, ok := r[colUUID].(string); ok && v != "" {
		id = v
	}

	var serverID int64
	if c.ServerKey {
		n, ok := toInt64(r[colID])
		if !ok || n <= 0 {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, ErrMsgMissingServerKey, c.Name)
		}
		serverID = n
	}

	payload, err := encodePayload(c, r)
	if err != nil {
		return nil, err
	}

	var rowID int64
	if c.ServerKey {
		query := fmt.Sprintf("INSERT INTO %s (id, uuid, created_on, data) VALUES (?, ?, ?, ?)", quoteIdent(c.Name))
		if _, err := q.ExecContext(ctx, query, serverID, id, createdOn, payload); err != nil {
			return nil, mapError(ErrMsgWriteFailed, err)
		}
		rowID = serverID
	} else {
		query := fmt.Sprintf("INSERT INTO %s (uuid, created_on, data) VALUES (?, ?, ?)", quoteIdent(c.Name))
		res, err := q.ExecContext(ctx, query, id, createdOn, payload)
		if err != nil {
			return nil, mapError(ErrMsgWriteFailed, err)
		}
		if rowID, err = res.LastInsertId(); err != nil {
			return nil, mapError(ErrMsgWriteFailed, err)
		}
	}

	return decodeRow(rowID, id, createdOn, payload)
}

// QueryByIndex returns every record whose indexed field equals key, newest
// first by created_on with ties broken by id descending
func (s *Store) QueryByIndex(ctx context.Context, collection, index string, key interface{}) ([]domain.Record, error) {
	c, ix, k, err := s.resolveIndex(collection, index, key)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_on DESC, id DESC",
		selectColumns, quoteIdent(c.Name), indexPredicate(ix))

	var out []domain.Record
	err = s.withDB(func(db *sql.DB) error {
		out, err = queryRecords(ctx, db, query, k)
		return err
	})
	return out, err
}

// CountByIndex counts records whose indexed field equals key
func (s *Store) CountByIndex(ctx context.Context, collection, index string, key interface{}) (int, error) {
	c, ix, k, err := s.resolveIndex(collection, index, key)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quoteIdent(c.Name), indexPredicate(ix))

	var n int
	err = s.withDB(func(db *sql.DB) error {
		if err := db.QueryRowContext(ctx, query, k).Scan(&n); err != nil {
			return mapError(ErrMsgQueryFailed, err)
		}
		return nil
	})
	return n, err
}

// CountOrZero is CountByIndex for display paths: failures are logged and
// counted as zero
func (s *Store) CountOrZero(ctx context.Context, collection, index string, key interface{}) int {
	n, err := s.CountByIndex(ctx, collection, index, key)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgCountFailed, logger.AttrKeyCollection, collection, "index", index, logger.AttrKeyError, err)
		return 0
	}
	return n
}

// Get returns one record by id
func (s *Store) Get(ctx context.Context, collection string, id int64) (domain.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	var out domain.Record
	err = s.withDB(func(db *sql.DB) error {
		out, err = getRow(ctx, db, c, id)
		return err
	})
	return out, err
}

// All returns every record of the collection in id order
func (s *Store) All(ctx context.Context, collection string) ([]domain.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", selectColumns, quoteIdent(c.Name))

	var out []domain.Record
	err = s.withDB(func(db *sql.DB) error {
		out, err = queryRecords(ctx, db, query)
		return err
	})
	return out, err
}

// Put replaces the payload of an existing record and marks it pending sync
// again. id, uuid and created_on are kept.
func (s *Store) Put(ctx context.Context, collection string, id int64, rec domain.Record) (domain.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyRecord)
	}
	payload, err := encodePayload(c, rec.Clone())
	if err != nil {
		return nil, err
	}

	var out domain.Record
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("UPDATE %s SET data = ?, revision = revision + 1 WHERE id = ?", quoteIdent(c.Name))
		res, err := tx.ExecContext(ctx, query, payload, id)
		if err != nil {
			return mapError(ErrMsgWriteFailed, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s id %d", domain.ErrNotFound, c.Name, id)
		}
		out, err = getRow(ctx, tx, c, id)
		return err
	})
	return out, err
}

// Upsert stores a server-originated record under its server-assigned id.
// The row is considered synced.
func (s *Store) Upsert(ctx context.Context, collection string, rec domain.Record) (domain.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	id, ok := toInt64(rec[colID])
	if !ok || id <= 0 {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, ErrMsgMissingServerKey, c.Name)
	}

	r := rec.Clone()
	createdOn, err := s.createdOn(r)
	if err != nil {
		return nil, err
	}
	rowUUID := newUUID()
	if v, ok := r[colUUID].(string); ok && v != "" {
		rowUUID = v
	}
	payload, err := encodePayload(c, r)
	if err != nil {
		return nil, err
	}

	var out domain.Record
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`INSERT INTO %s (id, uuid, created_on, data, revision, synced_revision)
			VALUES (?, ?, ?, ?, 1, 1)
			ON CONFLICT (id) DO UPDATE SET
				data = excluded.data,
				revision = revision + 1,
				synced_revision = revision + 1`, quoteIdent(c.Name))
		if _, err := tx.ExecContext(ctx, query, id, rowUUID, createdOn, payload); err != nil {
			return mapError(ErrMsgWriteFailed, err)
		}
		out, err = getRow(ctx, tx, c, id)
		return err
	})
	return out, err
}

// Delete removes one record by id
func (s *Store) Delete(ctx context.Context, collection string, id int64) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	return s.withDB(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", quoteIdent(c.Name)), id)
		if err != nil {
			return mapError(ErrMsgWriteFailed, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s id %d", domain.ErrNotFound, c.Name, id)
		}
		return nil
	})
}

// Pending returns up to limit records changed since they were last synced,
// oldest first. A non-positive limit returns all of them.
func (s *Store) Pending(ctx context.Context, collection string, limit int) ([]PendingRecord, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	query := fmt.Sprintf("SELECT %s, revision FROM %s WHERE synced_revision < revision ORDER BY id LIMIT ?",
		selectColumns, quoteIdent(c.Name))

	var out []PendingRecord
	err = s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, limit)
		if err != nil {
			return mapError(ErrMsgQueryFailed, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id        int64
				rowUUID   string
				createdOn string
				data      string
				revision  int64
			)
			if err := rows.Scan(&id, &rowUUID, &createdOn, &data, &revision); err != nil {
				return mapError(ErrMsgQueryFailed, err)
			}
			rec, err := decodeRow(id, rowUUID, createdOn, data)
			if err != nil {
				return err
			}
			out = append(out, PendingRecord{Record: rec, Revision: revision})
		}
		return mapError(ErrMsgQueryFailed, rows.Err())
	})
	return out, err
}

// CountPending returns how many records of the collection are unsynced
func (s *Store) CountPending(ctx context.Context, collection string) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.withDB(func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE synced_revision < revision", quoteIdent(c.Name))
		return mapError(ErrMsgQueryFailed, db.QueryRowContext(ctx, query).Scan(&n))
	})
	return n, err
}

// MarkSynced records that the given revisions reached the server. A record
// edited after it was read keeps its newer revision pending. Returns the
// number of records marked.
func (s *Store) MarkSynced(ctx context.Context, collection string, marks []SyncMark) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	if len(marks) == 0 {
		return 0, nil
	}

	marked := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("UPDATE %s SET synced_revision = revision WHERE id = ? AND revision = ?", quoteIdent(c.Name))
		for _, m := range marks {
			res, err := tx.ExecContext(ctx, query, m.ID, m.Revision)
			if err != nil {
				return mapError(ErrMsgWriteFailed, err)
			}
			n, _ := res.RowsAffected()
			marked += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

func (s *Store) resolveIndex(collection, index string, key interface{}) (Collection, Index, interface{}, error) {
	c, err := s.collection(collection)
	if err != nil {
		return Collection{}, Index{}, nil, err
	}
	ix, err := s.index(c, index)
	if err != nil {
		return Collection{}, Index{}, nil, err
	}
	k, err := ix.key(key)
	if err != nil {
		return Collection{}, Index{}, nil, err
	}
	return c, ix, k, nil
}

func indexPredicate(ix Index) string {
	p := ix.expr() + " = ?"
	if ix.Where != "" {
		p += " AND " + ix.Where
	}
	return p
}

// createdOn returns the record's created_on in TimeLayout, stamping now
// when absent
func (s *Store) createdOn(r domain.Record) (string, error) {
	raw, ok := r[colCreatedOn]
	if !ok || raw == nil || raw == "" {
		return s.timestamp(), nil
	}
	str, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: created_on must be a timestamp string", domain.ErrInvalidInput)
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return "", fmt.Errorf("%w: created_on: %v", domain.ErrInvalidInput, err)
	}
	return t.UTC().Format(TimeLayout), nil
}

// encodePayload coerces indexed fields to their kind and serialises every
// non-column field
func encodePayload(c Collection, r domain.Record) (string, error) {
	for _, ix := range c.Indexes {
		if isColumn(ix.Field) {
			continue
		}
		v, ok := r[ix.Field]
		if !ok || v == nil {
			continue
		}
		k, err := ix.key(v)
		if err != nil {
			return "", err
		}
		r[ix.Field] = k
	}

	delete(r, colID)
	delete(r, colUUID)
	delete(r, colCreatedOn)

	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return string(b), nil
}

func decodeRow(id int64, rowUUID, createdOn, data string) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	rec := domain.Record{}
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUnderlyingStore, ErrMsgDecodeFailed, err)
	}
	rec[colID] = id
	rec[colUUID] = rowUUID
	rec[colCreatedOn] = createdOn
	return rec, nil
}

func getRow(ctx context.Context, q queryer, c Collection, id int64) (domain.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns, quoteIdent(c.Name))

	var (
		rowID     int64
		rowUUID   string
		createdOn string
		data      string
	)
	err := q.QueryRowContext(ctx, query, id).Scan(&rowID, &rowUUID, &createdOn, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s id %d", domain.ErrNotFound, c.Name, id)
	}
	if err != nil {
		return nil, mapError(ErrMsgQueryFailed, err)
	}
	return decodeRow(rowID, rowUUID, createdOn, data)
}

func queryRecords(ctx context.Context, q queryer, query string, args ...interface{}) ([]domain.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(ErrMsgQueryFailed, err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		var (
			id        int64
			rowUUID   string
			createdOn string
			data      string
		)
		if err := rows.Scan(&id, &rowUUID, &createdOn, &data); err != nil {
			return nil, mapError(ErrMsgQueryFailed, err)
		}
		rec, err := decodeRow(id, rowUUID, createdOn, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ErrMsgQueryFailed, err)
	}
	return out, nil
}

// newUUID returns a v7 id, falling back to v4
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
