package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/FieldSync_Go/internal/database/postgres"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
	"github.com/osse101/FieldSync_Go/internal/repository"
)

// Repositories holds all repository implementations used by the server.
type Repositories struct {
	Sync    repository.Sync
	User    repository.User
	SyncLog eventlog.Repository
}

// InitializeRepositories creates all repository implementations.
func InitializeRepositories(dbPool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Sync:    postgres.NewSyncRepository(dbPool),
		User:    postgres.NewUserRepository(dbPool),
		SyncLog: postgres.NewSyncLogRepository(dbPool),
	}
}
