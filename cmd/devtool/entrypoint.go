package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	migrateAttempts   = 3
	migrateRetryDelay = 5 * time.Second
)

type EntrypointCommand struct{}

func (c *EntrypointCommand) Name() string {
	return "entrypoint"
}

func (c *EntrypointCommand) Description() string {
	return "Container entrypoint (wait-for-db, migrate, exec)"
}

func (c *EntrypointCommand) Run(ctx context.Context, args []string) error {
	if os.Getenv("DB_HOST") == "" {
		_ = os.Setenv("DB_HOST", "db")
	}

	if err := (&WaitForDBCommand{}).Run(ctx, nil); err != nil {
		return fmt.Errorf("wait-for-db failed: %w", err)
	}
	if err := c.migrateWithRetries(ctx); err != nil {
		return err
	}
	return c.execApp(args)
}

func (c *EntrypointCommand) migrateWithRetries(ctx context.Context) error {
	PrintHeader("Running migrations...")
	migrateCmd := &MigrateCommand{}

	var err error
	for i := 1; i <= migrateAttempts; i++ {
		if err = migrateCmd.Run(ctx, []string{"up"}); err == nil {
			PrintSuccess("Migrations completed successfully")
			return nil
		}
		PrintWarning("Migration attempt %d failed: %v", i, err)
		if i < migrateAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(migrateRetryDelay):
			}
		}
	}
	return fmt.Errorf("migrations failed after %d attempts: %w", migrateAttempts, err)
}

// execApp replaces the current process with the given command
func (c *EntrypointCommand) execApp(args []string) error {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		return fmt.Errorf("no command to execute")
	}

	PrintHeader("Starting application...")
	cmdPath, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("executable not found: %w", err)
	}
	if err := syscall.Exec(cmdPath, args, os.Environ()); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}
