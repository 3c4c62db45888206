package database

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/osse101/FieldSync_Go/internal/testing/leaktest"
)

var testDBConnString string

func TestMain(m *testing.M) {
	flag.Parse()

	var terminate func()
	if !testing.Short() {
		testDBConnString, terminate = setupContainer(context.Background())
	}

	code := m.Run()

	if terminate != nil {
		terminate()
	}
	os.Exit(code)
}

func setupContainer(ctx context.Context) (string, func()) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic in setupContainer: %v\n", r)
		}
	}()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("fieldsync"),
		postgres.WithUsername("fieldsync"),
		postgres.WithPassword("fieldsync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Printf("WARNING: Failed to start postgres container: %v\n", err)
		return "", func() {}
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Printf("WARNING: Failed to get connection string: %v\n", err)
		_ = pgContainer.Terminate(ctx)
		return "", func() {}
	}

	return connStr, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate container: %v\n", err)
		}
	}
}

// migratedPool applies the embedded migrations and opens a pool on the result
func migratedPool(t *testing.T, maxConns int) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if testDBConnString == "" {
		t.Skip("Skipping integration test: database not available")
	}

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, testDBConnString))

	pool, err := NewPool(ctx, testDBConnString, maxConns, time.Minute, 5*time.Minute)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestMigrate_AppliesAllMigrationsIdempotently(t *testing.T) {
	pool := migratedPool(t, 2)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, testDBConnString), "second run should be a no-op")

	m, err := NewMigrator(testDBConnString)
	require.NoError(t, err)
	defer m.Close()

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(5))

	var brands int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM brands").Scan(&brands))
	assert.Equal(t, 10, brands, "brand seed runs once")

	var def string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT column_default FROM information_schema.columns
		 WHERE table_name = 'users' AND column_name = 'assigned_version'`).Scan(&def))
	assert.Equal(t, "2", def)
}

func TestPool_ReleasesConnectionAfterConstraintViolation(t *testing.T) {
	pool := migratedPool(t, 5)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO stores (name, region) VALUES ('Pool Mart', 'north')
		ON CONFLICT (name) DO NOTHING`)
	require.NoError(t, err)

	for range 5 {
		_, err := pool.Exec(ctx, `INSERT INTO stores (name, region) VALUES ('Pool Mart', 'south')`)
		require.Error(t, err, "duplicate store name must be rejected")
	}

	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())

	var region string
	require.NoError(t, pool.QueryRow(ctx, `SELECT region FROM stores WHERE name = 'Pool Mart'`).Scan(&region))
	assert.Equal(t, "north", region)
}

func TestPool_RolledBackBatchLeavesNoRows(t *testing.T) {
	pool := migratedPool(t, 5)
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO stores (name) VALUES ('Rollback Mart')`)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO stores (name) VALUES ('Rollback Mart')`)
	require.Error(t, err)
	require.NoError(t, tx.Rollback(ctx))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM stores WHERE name = 'Rollback Mart'`).Scan(&n))
	assert.Zero(t, n)
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
}

func TestPool_ExhaustedPoolTimesOut(t *testing.T) {
	const maxConns = 3
	pool := migratedPool(t, maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conns := make([]*pgxpool.Conn, maxConns)
	for i := range conns {
		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		conns[i] = conn
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer shortCancel()
	var n int
	err := pool.QueryRow(shortCtx, "SELECT COUNT(*) FROM brands").Scan(&n)
	assert.Error(t, err, "a sync read must not get a connection while the pool is exhausted")

	conns[0].Release()
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM brands").Scan(&n))
	assert.Equal(t, 10, n)

	for _, c := range conns[1:] {
		c.Release()
	}
}

func TestPool_ConcurrentBrandReads(t *testing.T) {
	pool := migratedPool(t, 10)
	checker := leaktest.NewGoroutineChecker(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var name string
			err := pool.QueryRow(context.Background(),
				`SELECT name FROM brands ORDER BY id OFFSET $1 LIMIT 1`, id%10).Scan(&name)
			if err != nil {
				t.Errorf("reader %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
	checker.Check(2)
}
