// Package localstore is the device-side record store. It keeps typed
// collections in a single SQLite file, migrates them forward additively and
// tracks which records still need to reach the server.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// Options tunes a Store
type Options struct {
	// BcryptCost for locally hashed passwords; zero means bcrypt.DefaultCost
	BcryptCost  int
	BusyTimeout time.Duration
	// Now overrides the clock
	Now func() time.Time
}

// Store is an open local database. After Close every call fails with
// domain.ErrNotInitialized.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	version int
	cost    int
	now     func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// fileDSN builds a SQLite URI for the absolute path abs. The path is
// percent-encoded so '?', '#' and '%' in directory or file names stay part
// of the path.
func fileDSN(abs string, busyTimeout time.Duration) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{
		Scheme: "file",
		Path:   p,
		RawQuery: fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
			busyTimeout.Milliseconds()),
	}
	return u.String()
}

// Open opens or creates the store at path and migrates it to
// expectedVersion (LatestVersion when zero). The bootstrap user is created
// when the users collection is empty.
func Open(ctx context.Context, path string, expectedVersion int, opts Options) (*Store, error) {
	if expectedVersion == 0 {
		expectedVersion = LatestVersion
	}
	if expectedVersion < 0 || expectedVersion > LatestVersion {
		return nil, fmt.Errorf("%w: %s (%d > %d)", domain.ErrInvalidInput, ErrMsgVersionTooNew, expectedVersion, LatestVersion)
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, ErrMsgOpenFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), DBDirPermission); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, ErrMsgOpenFailed, err)
	}

	db, err := sql.Open("sqlite", fileDSN(abs, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, ErrMsgOpenFailed, err)
	}
	// one writer; every transaction is BEGIN IMMEDIATE
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, ErrMsgOpenFailed, err)
	}

	s := &Store{db: db, path: path, cost: opts.BcryptCost, now: opts.Now}

	if err := s.upgrade(ctx, expectedVersion); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.version = expectedVersion

	if err := s.seedDefaultUser(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.FromContext(ctx).Info(LogMsgStoreOpened, "path", path, "version", s.version)
	return s, nil
}

// Version returns the schema version the store was opened at
func (s *Store) Version() int {
	return s.version
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close releases the database. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgCloseFailed, err)
	}
	return nil
}

func (s *Store) withDB(fn func(db *sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return domain.ErrNotInitialized
	}
	return fn(s.db)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withDB(func(db *sql.DB) error {
		return runTx(ctx, db, fn)
	})
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(ErrMsgWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(ErrMsgWriteFailed, err)
	}
	return nil
}

// collection resolves name against the catalog and the open version
func (s *Store) collection(name string) (Collection, error) {
	c, ok := LookupCollection(name)
	if !ok {
		return Collection{}, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, ErrMsgUnknownCollection, name)
	}
	if c.Version > s.version {
		return Collection{}, fmt.Errorf("%w: %s: %s needs v%d, open at v%d",
			domain.ErrInvalidInput, ErrMsgCollectionNotInV, name, c.Version, s.version)
	}
	return c, nil
}

func (s *Store) index(c Collection, name string) (Index, error) {
	ix, ok := c.index(name)
	if !ok || ix.since(c) > s.version {
		return Index{}, fmt.Errorf("%w: %s %s.%s", domain.ErrInvalidInput, ErrMsgUnknownIndex, c.Name, name)
	}
	return ix, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(TimeLayout)
}

// mapError translates driver errors. Unique and check failures match both
// ErrConstraintViolation and ErrUnderlyingStore.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrConstraintViolation) ||
		errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnderlyingStore) ||
		errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionAlreadyOpen) {
		return err
	}

	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w: %s: %s", domain.ErrConstraintViolation, domain.ErrUnderlyingStore, op, se.Error())
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUnderlyingStore, op, err)
}
