package main

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/FieldSync_Go/internal/database"
	"github.com/osse101/FieldSync_Go/internal/database/postgres"
	"github.com/osse101/FieldSync_Go/internal/reconciler"
)

type DoctorCommand struct{}

func (c *DoctorCommand) Name() string {
	return "doctor"
}

func (c *DoctorCommand) Description() string {
	return "Diagnose environment issues (deps, db, schema)"
}

func (c *DoctorCommand) Run(ctx context.Context, args []string) error {
	PrintHeader("Running Doctor...")

	hasError := false

	if err := (&CheckDepsCommand{}).Run(ctx, nil); err != nil {
		PrintError("Dependencies check failed: %v", err)
		hasError = true
	} else {
		PrintSuccess("Dependencies OK")
	}

	if err := waitForDB(ctx, dbURL(), 1, time.Second); err != nil {
		PrintError("Database check failed: %v", err)
		hasError = true
	} else if err := (&MigrateCommand{}).Run(ctx, []string{"version"}); err != nil {
		PrintError("Schema check failed: %v", err)
		hasError = true
	} else if err := verifyRegistry(ctx); err != nil {
		PrintError("Sync table registry check failed: %v", err)
		hasError = true
	} else {
		PrintSuccess("Database OK, %d sync tables match the registry", len(reconciler.Tables()))
	}

	if hasError {
		return fmt.Errorf("doctor found issues")
	}

	PrintSuccess("All systems operational!")
	return nil
}

// verifyRegistry compares the reconciler's table registry with the live
// schema, the same check the server runs at startup
func verifyRegistry(ctx context.Context) error {
	pool, err := database.NewPool(ctx, dbURL(), 1, time.Minute, time.Minute)
	if err != nil {
		return err
	}
	defer pool.Close()
	return reconciler.VerifyRegistry(ctx, postgres.NewSyncRepository(pool))
}
