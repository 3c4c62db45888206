package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

func seedStore(t *testing.T, repo *SyncRepository, name string) int64 {
	t.Helper()
	res, err := repo.Upsert(context.Background(), "stores",
		domain.Record{"name": name, "region": "Central"}, []string{"name"})
	require.NoError(t, err)
	return numberField(t, res.Row, "id")
}

func TestSyncRepository_UpsertIsIdempotent(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)

	first, err := repo.Upsert(ctx, "stores", domain.Record{"name": "Kiosk A", "region": "North"}, []string{"name"})
	require.NoError(t, err)
	assert.True(t, first.Inserted)
	assert.Equal(t, "North", first.Row["region"])

	second, err := repo.Upsert(ctx, "stores", domain.Record{"name": "Kiosk A", "region": "South"}, []string{"name"})
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, numberField(t, first.Row, "id"), numberField(t, second.Row, "id"))
	assert.Equal(t, "South", second.Row["region"])

	rows, err := repo.List(ctx, "stores", domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSyncRepository_UpsertKeepsColumnsAbsentFromRecord(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)

	_, err := repo.Upsert(ctx, "stores", domain.Record{"name": "Kiosk B", "region": "East", "latitude": 1.5}, []string{"name"})
	require.NoError(t, err)

	res, err := repo.Upsert(ctx, "stores", domain.Record{"name": "Kiosk B", "region": "West"}, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, "West", res.Row["region"])
	assert.Equal(t, json.Number("1.5"), res.Row["latitude"])
}

func TestSyncRepository_BulkUpsertIsAtomic(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)
	storeID := seedStore(t, repo, "Kiosk C")

	records := []domain.Record{
		{"client_uuid": uuid.NewString(), "store_id": storeID, "submitter": "agent", "data": map[string]interface{}{"sku": "a"}},
		{"client_uuid": uuid.NewString(), "store_id": storeID, "submitter": "agent", "data": map[string]interface{}{"sku": "b"}},
		{"client_uuid": uuid.NewString(), "store_id": storeID + 999, "submitter": "agent"},
	}

	_, err := repo.BulkUpsert(ctx, "availability_records", records, []string{"client_uuid"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
	assert.ErrorIs(t, err, domain.ErrUnderlyingStore)

	var count int
	require.NoError(t, testPool.QueryRow(ctx, "SELECT COUNT(*) FROM availability_records").Scan(&count))
	assert.Equal(t, 0, count, "no record of a failed batch persists")

	results, err := repo.BulkUpsert(ctx, "availability_records", records[:2], []string{"client_uuid"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Inserted)
	assert.Equal(t, records[0]["client_uuid"], results[0].Row["client_uuid"])

	again, err := repo.BulkUpsert(ctx, "availability_records", records[:2], []string{"client_uuid"})
	require.NoError(t, err)
	assert.False(t, again[0].Inserted)
	assert.False(t, again[1].Inserted)
}

func TestSyncRepository_BulkUpsertMiddleFailureRollsBackEarlierRecords(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)
	storeID := seedStore(t, repo, "Kiosk M")

	first := uuid.NewString()
	records := []domain.Record{
		{"client_uuid": first, "store_id": storeID, "submitter": "agent"},
		{"client_uuid": uuid.NewString(), "store_id": storeID + 999, "submitter": "agent"},
		{"client_uuid": uuid.NewString(), "store_id": storeID, "submitter": "agent"},
	}

	_, err := repo.BulkUpsert(ctx, "availability_records", records, []string{"client_uuid"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "record 1")

	var count int
	require.NoError(t, testPool.QueryRow(ctx, "SELECT COUNT(*) FROM availability_records").Scan(&count))
	assert.Zero(t, count, "the record before the failure is rolled back too")

	var exists bool
	require.NoError(t, testPool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM availability_records WHERE client_uuid = $1)", first).Scan(&exists))
	assert.False(t, exists)
}

func TestSyncRepository_ExplicitIDAdvancesSequence(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)

	res, err := repo.Upsert(ctx, "stores", domain.Record{"id": 50, "name": "Kiosk Fifty"}, []string{"id"})
	require.NoError(t, err)
	require.True(t, res.Inserted)
	assert.Equal(t, int64(50), numberField(t, res.Row, "id"))

	next := seedStore(t, repo, "Kiosk After")
	assert.Greater(t, next, int64(50), "serial ids continue past the explicit id")

	// a lower explicit id never moves the sequence back
	_, err = repo.Upsert(ctx, "stores", domain.Record{"id": 7, "name": "Kiosk Seven"}, []string{"id"})
	require.NoError(t, err)
	later := seedStore(t, repo, "Kiosk Later")
	assert.Greater(t, later, next)

	results, err := repo.BulkUpsert(ctx, "stores", []domain.Record{
		{"id": 200, "name": "Kiosk Batch"},
	}, []string{"id"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, seedStore(t, repo, "Kiosk Post Batch"), int64(200))
}

func TestSyncRepository_ConflictTargetWithoutConstraint(t *testing.T) {
	requireDB(t)
	resetTables(t)
	repo := NewSyncRepository(testPool)

	_, err := repo.Upsert(context.Background(), "stores", domain.Record{"name": "Kiosk D", "region": "North"}, []string{"region"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSyncRepository_BadValueIsInvalidInput(t *testing.T) {
	requireDB(t)
	resetTables(t)
	repo := NewSyncRepository(testPool)
	storeID := seedStore(t, repo, "Kiosk E")

	_, err := repo.Upsert(context.Background(), "availability_records",
		domain.Record{"client_uuid": "not-a-uuid", "store_id": storeID, "submitter": "agent"}, []string{"client_uuid"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSyncRepository_GetAndDelete(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)
	storeID := seedStore(t, repo, "Kiosk F")

	row, err := repo.Get(ctx, "stores", storeID)
	require.NoError(t, err)
	assert.Equal(t, "Kiosk F", row["name"])

	_, err = repo.Get(ctx, "stores", storeID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "stores", storeID))
	assert.ErrorIs(t, repo.Delete(ctx, "stores", storeID), domain.ErrNotFound)
}

func TestSyncRepository_ListOrderAndPaging(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncRepository(testPool)
	storeID := seedStore(t, repo, "Kiosk G")

	stamps := []string{"2024-01-01T08:00:00Z", "2024-01-03T08:00:00Z", "2024-01-02T08:00:00Z"}
	for _, ts := range stamps {
		_, err := repo.Upsert(ctx, "availability_records", domain.Record{
			"client_uuid": uuid.NewString(),
			"store_id":    storeID,
			"submitter":   "agent",
			"created_on":  ts,
		}, []string{"client_uuid"})
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx, "availability_records", domain.ListOptions{OrderBy: "created_on", Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0]["created_on"], "2024-01-03")
	assert.Contains(t, rows[1]["created_on"], "2024-01-02")

	rest, err := repo.List(ctx, "availability_records", domain.ListOptions{OrderBy: "created_on", Descending: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Contains(t, rest[0]["created_on"], "2024-01-01")
}

func TestSyncRepository_TableColumns(t *testing.T) {
	requireDB(t)
	repo := NewSyncRepository(testPool)

	cols, err := repo.TableColumns(context.Background(), "brand_stocks_records")
	require.NoError(t, err)
	assert.Equal(t, "uuid", cols["client_uuid"])
	assert.Equal(t, "integer", cols["current_stock"])
	assert.Equal(t, "date", cols["stock_date"])

	missing, err := repo.TableColumns(context.Background(), "no_such_table")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestBuildUpsertSQL(t *testing.T) {
	sql := buildUpsertSQL("stores", []string{"name", "region"}, []string{"name"})
	assert.Equal(t,
		`INSERT INTO "stores" AS target ("name", "region") `+
			`SELECT "name", "region" FROM jsonb_populate_record(NULL::"stores", $1::jsonb) `+
			`ON CONFLICT ("name") DO UPDATE SET "name" = EXCLUDED."name", "region" = EXCLUDED."region" `+
			`RETURNING to_jsonb(target.*), (target.xmax = 0)`,
		sql)
}

func TestQuoteIdent_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
