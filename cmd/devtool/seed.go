package main

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/FieldSync_Go/internal/database"
	"github.com/osse101/FieldSync_Go/internal/database/postgres"
	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/reconciler"
	"github.com/osse101/FieldSync_Go/internal/utils"
	"github.com/osse101/FieldSync_Go/internal/validation"
)

type SeedCommand struct{}

func (c *SeedCommand) Name() string {
	return "seed"
}

func (c *SeedCommand) Description() string {
	return "Seed the server database (brands, admin, stores <file.json>)"
}

func (c *SeedCommand) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("subcommand required: brands, admin, stores")
	}

	PrintInfo("Connecting to database: %s", redactPassword(dbURL()))
	pool, err := database.NewPool(ctx, dbURL(), 2, time.Minute, time.Hour)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := reconciler.NewService(postgres.NewSyncRepository(pool), validation.NewSchemaValidator(), nil, reconciler.DefaultConfig())
	if err != nil {
		return err
	}

	switch args[0] {
	case "brands":
		return seedBrands(ctx, svc)
	case "admin":
		return seedAdmin(ctx, svc)
	case "stores":
		if len(args) < 2 {
			return fmt.Errorf("stores file required")
		}
		return seedStores(ctx, svc, args[1])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func seedBrands(ctx context.Context, svc reconciler.Service) error {
	for _, name := range localstore.DefaultBrands {
		if _, err := svc.Upsert(ctx, "brands", domain.Record{"name": name}, "name"); err != nil {
			return fmt.Errorf("brand %q: %w", name, err)
		}
	}
	PrintSuccess("Seeded %d brands", len(localstore.DefaultBrands))
	return nil
}

// seedAdmin creates the bootstrap team leader with the same credentials the
// field agent seeds locally
func seedAdmin(ctx context.Context, svc reconciler.Service) error {
	_, err := svc.Upsert(ctx, "users", domain.Record{
		"username": localstore.DefaultUsername,
		"password": getEnv("ADMIN_PASSWORD", localstore.DefaultPassword),
		"email":    localstore.DefaultEmail,
		"assigned": localstore.DefaultAssigned,
	}, "username")
	if err != nil {
		return err
	}
	PrintSuccess("Seeded user %s", localstore.DefaultUsername)
	return nil
}

func seedStores(ctx context.Context, svc reconciler.Service, path string) error {
	var stores []domain.Record
	if err := utils.LoadJSON(path, &stores); err != nil {
		return err
	}
	for i, s := range stores {
		delete(s, domain.FieldID)
		if _, err := svc.Upsert(ctx, "stores", s, "name"); err != nil {
			return fmt.Errorf("store %d: %w", i, err)
		}
	}
	PrintSuccess("Seeded %d stores from %s", len(stores), path)
	return nil
}
