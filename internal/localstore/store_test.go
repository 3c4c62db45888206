package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// stepClock returns a clock that advances one second per reading
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func testOptions() Options {
	return Options{BcryptCost: bcrypt.MinCost, Now: stepClock()}
}

func openAt(t *testing.T, path string, version int) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, version, testOptions())
	require.NoError(t, err)
	return s
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := openAt(t, filepath.Join(t.TempDir(), "field.db"), LatestVersion)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_FreshStoreIsSeeded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, LatestVersion, s.Version())

	brands, err := s.All(ctx, CollBrands)
	require.NoError(t, err)
	require.Len(t, brands, len(DefaultBrands))
	assert.Equal(t, "KC Coconut", brands[0][FieldName])

	users, err := s.All(ctx, CollUsers)
	require.NoError(t, err)
	require.Len(t, users, 1)

	admin, err := s.User(ctx, DefaultUsername)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamLeader, admin.Role())
	assert.Equal(t, DefaultEmail, admin.Email)
	assert.NotEqual(t, DefaultPassword, admin.PasswordHash)
}

func TestOpen_SeedsOnlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.db")
	ctx := context.Background()

	s := openAt(t, path, LatestVersion)
	require.NoError(t, s.Close())

	s = openAt(t, path, LatestVersion)
	defer s.Close()

	users, err := s.All(ctx, CollUsers)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	brands, err := s.All(ctx, CollBrands)
	require.NoError(t, err)
	assert.Len(t, brands, len(DefaultBrands))
}

func TestOpen_UpgradeKeepsExistingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.db")
	ctx := context.Background()

	s := openAt(t, path, 2)
	rec, err := s.Insert(ctx, CollAvailability, domain.Record{domain.FieldStoreID: 3, "sku": "a"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, CollBrands, domain.Record{FieldName: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "brands arrive in v4")
	require.NoError(t, s.Close())

	s = openAt(t, path, LatestVersion)
	defer s.Close()

	got, err := s.Get(ctx, CollAvailability, rec[colID].(int64))
	require.NoError(t, err)
	assert.Equal(t, "a", got["sku"])
	assert.Equal(t, rec[colUUID], got[colUUID])

	brands, err := s.All(ctx, CollBrands)
	require.NoError(t, err)
	assert.Len(t, brands, len(DefaultBrands))

	_, err = s.Insert(ctx, CollTLFocus, domain.Record{domain.FieldStoreID: 3})
	assert.NoError(t, err)
}

func TestOpen_VersionChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.db")
	ctx := context.Background()

	_, err := Open(ctx, path, LatestVersion+1, testOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s := openAt(t, path, LatestVersion)
	require.NoError(t, s.Close())

	_, err = Open(ctx, path, 3, testOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), ErrMsgVersionDowngrade)
}

func TestOpen_UnusablePathIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), filepath.Join(blocker, "sub", "field.db"), 0, testOptions())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestFileDSN_EscapesPath(t *testing.T) {
	dsn := fileDSN("/data/a?b#c/50%/field.db", 2*time.Second)
	assert.Equal(t,
		"file:///data/a%3Fb%23c/50%25/field.db?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		dsn)
}

func TestOpen_PathWithURIMetacharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "route?day=1#north", "50% done")
	path := filepath.Join(dir, "field.db")
	ctx := context.Background()

	s := openAt(t, path, LatestVersion)
	_, err := s.Insert(ctx, CollBrands, domain.Record{FieldName: "Route Brand"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err, "database file must be created at the literal path")
	assert.False(t, info.IsDir())

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no truncated sibling path may be created")

	reopened := openAt(t, path, LatestVersion)
	defer reopened.Close()
	brands, err := reopened.All(ctx, CollBrands)
	require.NoError(t, err)
	assert.Len(t, brands, len(DefaultBrands)+1)
}

func TestClose_LaterCallsFail(t *testing.T) {
	s := openAt(t, filepath.Join(t.TempDir(), "field.db"), LatestVersion)
	ctx := context.Background()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Insert(ctx, CollAvailability, domain.Record{domain.FieldStoreID: 1})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = s.QueryByIndex(ctx, CollAvailability, domain.FieldStoreID, 1)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = s.Authenticate(ctx, DefaultUsername, DefaultPassword)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	assert.Zero(t, s.CountOrZero(ctx, CollAvailability, domain.FieldStoreID, 1))
}

func TestInsert_StampsCreatedOnAndUUID(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Insert(context.Background(), CollPlacement, domain.Record{domain.FieldStoreID: "7", "shelf": "eye"})
	require.NoError(t, err)

	assert.Positive(t, rec[colID].(int64))
	assert.NotEmpty(t, rec[colUUID])
	assert.Len(t, rec[colCreatedOn], len(TimeLayout))
	assert.Equal(t, json.Number("7"), rec[domain.FieldStoreID], "indexed ids are stored as numbers")
}

func TestInsert_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "nope", domain.Record{"a": 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Insert(ctx, CollPlacement, domain.Record{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Insert(ctx, CollPlacement, domain.Record{domain.FieldStoreID: "seven"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Insert(ctx, CollBrands, domain.Record{FieldName: "KC Coconut"})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	_, err = s.Insert(ctx, CollStores, domain.Record{FieldName: "No Key"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryByIndex_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []string{"2024-02-01T10:00:00Z", "2024-02-03T10:00:00Z", "2024-02-02T10:00:00Z"} {
		_, err := s.Insert(ctx, CollVisibility, domain.Record{domain.FieldStoreID: 5, domain.FieldCreatedOn: ts})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, CollVisibility, domain.Record{domain.FieldStoreID: 6})
	require.NoError(t, err)

	rows, err := s.QueryByIndex(ctx, CollVisibility, domain.FieldStoreID, 5)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[0][colCreatedOn], "2024-02-03")
	assert.Contains(t, rows[1][colCreatedOn], "2024-02-02")
	assert.Contains(t, rows[2][colCreatedOn], "2024-02-01")
}

func TestQueryByIndex_TiesByIDDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		rec, err := s.Insert(ctx, CollActivation, domain.Record{domain.FieldStoreID: 1, domain.FieldCreatedOn: "2024-02-01T10:00:00Z"})
		require.NoError(t, err)
		ids = append(ids, rec[colID].(int64))
	}

	rows, err := s.QueryByIndex(ctx, CollActivation, domain.FieldStoreID, json.Number("1"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ids[2], rows[0][colID])
	assert.Equal(t, ids[0], rows[2][colID])
}

func TestCountByIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.Insert(ctx, CollListings, domain.Record{domain.FieldStoreID: 9})
		require.NoError(t, err)
	}

	n, err := s.CountByIndex(ctx, CollListings, domain.FieldStoreID, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.CountByIndex(ctx, CollListings, domain.FieldStoreID, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.CountByIndex(ctx, CollListings, "missing", 9)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, s.CountOrZero(ctx, CollListings, "missing", 9))
	assert.Equal(t, 4, s.CountOrZero(ctx, CollListings, domain.FieldStoreID, 9))
}

func TestCountOrZero_IndexFromNewerVersion(t *testing.T) {
	s := openAt(t, filepath.Join(t.TempDir(), "field.db"), 5)
	defer s.Close()

	assert.Zero(t, s.CountOrZero(context.Background(), CollUsers, FieldAssignedVersion, 2))
}

func TestPendingAndMarkSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, CollChecklist, domain.Record{domain.FieldStoreID: 2, "beer": 40})
	require.NoError(t, err)
	id := rec[colID].(int64)

	pending, err := s.Pending(ctx, CollChecklist, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].Revision)

	marked, err := s.MarkSynced(ctx, CollChecklist, []SyncMark{{ID: id, Revision: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	n, err := s.CountPending(ctx, CollChecklist)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Put(ctx, CollChecklist, id, domain.Record{domain.FieldStoreID: 2, "beer": 55})
	require.NoError(t, err)

	pending, err = s.Pending(ctx, CollChecklist, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].Revision)
	assert.Equal(t, json.Number("55"), pending[0].Record["beer"])

	marked, err = s.MarkSynced(ctx, CollChecklist, []SyncMark{{ID: id, Revision: 1}})
	require.NoError(t, err)
	assert.Zero(t, marked, "a stale revision must not hide a newer edit")

	n, err = s.CountPending(ctx, CollChecklist)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPut_KeepsIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, CollPerformance, domain.Record{domain.FieldStoreID: 4, "score": 1})
	require.NoError(t, err)
	id := rec[colID].(int64)

	updated, err := s.Put(ctx, CollPerformance, id, domain.Record{domain.FieldStoreID: 4, "score": 2, colUUID: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, rec[colUUID], updated[colUUID])
	assert.Equal(t, rec[colCreatedOn], updated[colCreatedOn])
	assert.Equal(t, json.Number("2"), updated["score"])

	_, err = s.Put(ctx, CollPerformance, id+100, domain.Record{"score": 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsert_ServerRowsAreSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, CollStores, domain.Record{colID: json.Number("10"), FieldName: "Kiosk A", "region": "North"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), first[colID])

	second, err := s.Upsert(ctx, CollStores, domain.Record{colID: 10, FieldName: "Kiosk A", "region": "South"})
	require.NoError(t, err)
	assert.Equal(t, "South", second["region"])
	assert.Equal(t, first[colUUID], second[colUUID])

	all, err := s.All(ctx, CollStores)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	pending, err := s.Pending(ctx, CollStores, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = s.Upsert(ctx, CollStores, domain.Record{FieldName: "No Key"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Upsert(ctx, CollStores, domain.Record{colID: 11, FieldName: "Kiosk A"})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, CollObjectives, domain.Record{domain.FieldStoreID: 1})
	require.NoError(t, err)
	id := rec[colID].(int64)

	require.NoError(t, s.Delete(ctx, CollObjectives, id))
	assert.ErrorIs(t, s.Delete(ctx, CollObjectives, id), domain.ErrNotFound)

	_, err = s.Get(ctx, CollObjectives, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type rawRow struct {
	ID             int64
	UUID           string
	CreatedOn      string
	Data           string
	Revision       int
	SyncedRevision int
}

func rawRows(t *testing.T, s *Store, collection string) []rawRow {
	t.Helper()
	var out []rawRow
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.Query("SELECT id, uuid, created_on, data, revision, synced_revision FROM " + quoteIdent(collection) + " ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r rawRow
			if err := rows.Scan(&r.ID, &r.UUID, &r.CreatedOn, &r.Data, &r.Revision, &r.SyncedRevision); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	require.NoError(t, err)
	return out
}

func TestUpgradeToV6_KeepsExistingRowsUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.db")
	ctx := context.Background()

	s := openAt(t, path, 5)
	_, err := s.Insert(ctx, CollCheckin, domain.Record{domain.FieldStoreID: 1, FieldSessionID: "old", FieldCheckoutTime: CheckoutOpen})
	require.NoError(t, err)
	newer, err := s.Insert(ctx, CollCheckin, domain.Record{domain.FieldStoreID: 1, FieldSessionID: "new", FieldCheckoutTime: CheckoutOpen})
	require.NoError(t, err)
	_, err = s.Insert(ctx, CollUsers, domain.Record{FieldUsername: "legacy", FieldAssigned: "team-leader"})
	require.NoError(t, err)

	checkinsBefore := rawRows(t, s, CollCheckin)
	usersBefore := rawRows(t, s, CollUsers)
	require.NoError(t, s.Close())

	s = openAt(t, path, 6)
	defer s.Close()

	assert.Equal(t, checkinsBefore, rawRows(t, s, CollCheckin))
	assert.Equal(t, usersBefore, rawRows(t, s, CollUsers))

	active, err := s.ActiveSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, newer[colID], active[colID])

	_, err = s.CheckIn(ctx, CheckInParams{StoreID: 1})
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyOpen, "legacy open sessions still block a new check-in")

	_, err = s.CheckIn(ctx, CheckInParams{StoreID: 2})
	require.NoError(t, err)
	_, err = s.CheckIn(ctx, CheckInParams{StoreID: 2})
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyOpen)
}

func TestUpgradeToV6_LegacyUsersReadAsLegacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.db")
	ctx := context.Background()

	s := openAt(t, path, 5)
	_, err := s.Insert(ctx, CollUsers, domain.Record{FieldUsername: "legacy", FieldAssigned: "team-leader"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openAt(t, path, 6)
	defer s.Close()

	legacy, err := s.User(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignedVersionLegacy, legacy.AssignedVersion)
	assert.Equal(t, domain.RoleField, legacy.Role(), "legacy assignment never grants team-leader")

	admin, err := s.User(ctx, DefaultUsername)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignedVersionRole, admin.AssignedVersion)

	n, err := s.CountByIndex(ctx, CollUsers, FieldAssignedVersion, domain.AssignedVersionRole)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
