package main

import (
	"context"
	"fmt"

	"github.com/osse101/FieldSync_Go/internal/database"
)

type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

func (c *MigrateCommand) Description() string {
	return "Manage database migrations (up, down, status, version, create)"
}

func (c *MigrateCommand) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("subcommand required: up, down, status, version, create")
	}
	subcmd := args[0]

	// New files go to the source tree, so create shells out to the goose CLI
	if subcmd == "create" {
		if len(args) < 2 {
			return fmt.Errorf("migration name required for create")
		}
		migrationType := "sql"
		if len(args) > 2 {
			migrationType = args[2]
		}
		return runCommandVerbose("go", "run", "github.com/pressly/goose/v3/cmd/goose",
			"-dir", "migrations", "create", args[1], migrationType)
	}

	PrintInfo("Database: %s", redactPassword(dbURL()))

	m, err := database.NewMigrator(dbURL())
	if err != nil {
		return err
	}
	defer m.Close()

	switch subcmd {
	case "up":
		if err := m.Up(ctx); err != nil {
			return err
		}
	case "down":
		if err := m.Down(ctx); err != nil {
			return err
		}
	case "status":
		return m.Status(ctx)
	case "version":
	default:
		return fmt.Errorf("unknown subcommand %q", subcmd)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	PrintSuccess("Schema version: %d", version)
	return nil
}
