package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// migration hooks run inside the version's transaction, after the
// catalog's tables and indexes for that version are created. Hooks may only
// add rows; existing rows are never rewritten.
type migration struct {
	after func(ctx context.Context, s *Store, tx *sql.Tx) error
}

var migrations = map[int]migration{
	4: {after: seedBrands},
}

func readVersion(ctx context.Context, q queryer) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, ErrMsgReadVersionFailed, err)
	}
	return v, nil
}

// upgrade runs stored+1..expected, one transaction per version. Nothing is
// ever dropped.
func (s *Store) upgrade(ctx context.Context, expected int) error {
	stored, err := readVersion(ctx, s.db)
	if err != nil {
		return err
	}
	if stored > expected {
		return fmt.Errorf("%w: %s (stored v%d, requested v%d)", domain.ErrInvalidInput, ErrMsgVersionDowngrade, stored, expected)
	}

	for v := stored + 1; v <= expected; v++ {
		err := runTx(ctx, s.db, func(tx *sql.Tx) error {
			return s.applyVersion(ctx, tx, v)
		})
		if err != nil {
			return fmt.Errorf("%s: v%d: %w", ErrMsgMigrationFailed, v, err)
		}
		logger.FromContext(ctx).Info(LogMsgMigrationApplied, "path", s.path, "version", v)
	}
	return nil
}

func (s *Store) applyVersion(ctx context.Context, tx *sql.Tx, v int) error {
	m := migrations[v]

	for _, c := range catalog {
		if c.Version == v {
			if _, err := tx.ExecContext(ctx, createTableSQL(c)); err != nil {
				return mapError(c.Name, err)
			}
		}
	}

	for _, c := range catalog {
		if c.Version > v {
			continue
		}
		for _, ix := range c.Indexes {
			if ix.since(c) != v {
				continue
			}
			if _, err := tx.ExecContext(ctx, createIndexSQL(c, ix)); err != nil {
				return mapError(ix.sqlName(c), err)
			}
		}
	}

	if m.after != nil {
		if err := m.after(ctx, s, tx); err != nil {
			return err
		}
	}

	// user_version is part of the database header and commits with tx
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return mapError(ErrMsgMigrationFailed, err)
	}
	return nil
}

// seedBrands fills the brand list only when the collection is empty
func seedBrands(ctx context.Context, s *Store, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM "brands"`).Scan(&count); err != nil {
		return mapError(CollBrands, err)
	}
	if count > 0 {
		return nil
	}

	c := catalogByName[CollBrands]
	for _, name := range DefaultBrands {
		if _, err := s.insertRow(ctx, tx, c, domain.Record{FieldName: name}); err != nil {
			return err
		}
	}
	logger.FromContext(ctx).Info(LogMsgBrandsSeeded, "count", len(DefaultBrands))
	return nil
}
