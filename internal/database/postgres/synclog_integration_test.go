package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
)

func TestSyncLogRepository_Integration(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	repo := NewSyncLogRepository(testPool)

	old := domain.SyncLogEntry{
		TableName:   "stores",
		Status:      domain.SyncStatusApplied,
		RecordCount: 2,
		Inserted:    2,
		CreatedAt:   time.Now().Add(-72 * time.Hour),
	}
	recent := domain.SyncLogEntry{
		TableName:      "availability_records",
		Subject:        "agent",
		Status:         domain.SyncStatusFailed,
		ConflictTarget: "client_uuid",
		RecordCount:    3,
		Error:          "constraint violation",
		RequestID:      "req-1",
	}
	require.NoError(t, repo.LogBatch(ctx, old))
	require.NoError(t, repo.LogBatch(ctx, recent))

	t.Run("newest first", func(t *testing.T) {
		entries, err := repo.ListEntries(ctx, eventlog.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "availability_records", entries[0].TableName)
		assert.Equal(t, "agent", entries[0].Subject)
		assert.Equal(t, "req-1", entries[0].RequestID)
		assert.Equal(t, "stores", entries[1].TableName)
		assert.Empty(t, entries[1].Subject)
	})

	t.Run("filters", func(t *testing.T) {
		entries, err := repo.ListEntries(ctx, eventlog.Filter{Status: domain.SyncStatusApplied})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "stores", entries[0].TableName)

		since := time.Now().Add(-time.Hour)
		entries, err = repo.ListEntries(ctx, eventlog.Filter{Since: &since})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.SyncStatusFailed, entries[0].Status)
	})

	t.Run("cleanup", func(t *testing.T) {
		deleted, err := repo.CleanupOldEntries(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		entries, err := repo.ListEntries(ctx, eventlog.Filter{})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestUserRepository_Integration(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	syncRepo := NewSyncRepository(testPool)
	repo := NewUserRepository(testPool)

	_, err := syncRepo.Upsert(ctx, "users", domain.Record{
		"username": "lead",
		"password": "$2a$10$abcdefghijklmnopqrstuu",
		"assigned": "team-leader",
	}, []string{"username"})
	require.NoError(t, err)

	user, err := repo.GetUserByUsername(ctx, "lead")
	require.NoError(t, err)
	assert.Equal(t, "lead", user.Username)
	assert.Equal(t, domain.AssignedVersionRole, user.AssignedVersion)
	assert.Equal(t, domain.RoleTeamLeader, user.Role())
	assert.NotEmpty(t, user.PasswordHash)

	_, err = repo.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.RecordLogin(ctx, user, domain.LoginEventLogin))
	var count int
	require.NoError(t, testPool.QueryRow(ctx, "SELECT COUNT(*) FROM login_logs WHERE username = 'lead'").Scan(&count))
	assert.Equal(t, 1, count)
}
