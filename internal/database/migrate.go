package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/migrations"
)

// Migrator applies the embedded goose migrations
type Migrator struct {
	db  *sql.DB
	fs  fs.FS
	dir string
}

// NewMigrator opens a database/sql handle over pgx for goose
func NewMigrator(connString string) (*Migrator, error) {
	db, err := sql.Open(DriverName, connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToOpenMigrationDB, err)
	}
	return &Migrator{db: db, fs: migrations.FS, dir: "."}, nil
}

func (m *Migrator) setup() error {
	goose.SetBaseFS(m.fs)
	goose.SetLogger(gooseLogger{})
	return goose.SetDialect(GooseDialect)
}

// Up applies all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgMigrationFailed, err)
	}
	return nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgMigrationFailed, err)
	}
	return nil
}

// Status logs the applied state of every migration
func (m *Migrator) Status(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, m.db, m.dir)
}

// Version returns the current database schema version
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := m.setup(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, m.db)
}

// Close releases the database/sql handle
func (m *Migrator) Close() error {
	return m.db.Close()
}

// Migrate opens a migrator, applies every pending migration and closes it
func Migrate(ctx context.Context, connString string) error {
	m, err := NewMigrator(connString)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return err
	}
	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info(LogMsgMigrationsApplied, "version", version)
	return nil
}

// gooseLogger routes goose output through slog
type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf(format, v...))
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(format, v...))
}
