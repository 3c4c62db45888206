package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const composeDBService = "db"

type CheckDBCommand struct{}

func (c *CheckDBCommand) Name() string {
	return "check-db"
}

func (c *CheckDBCommand) Description() string {
	return "Start the compose database if needed and wait until it accepts connections"
}

func (c *CheckDBCommand) Run(ctx context.Context, args []string) error {
	PrintHeader("Checking Docker database status...")

	if err := runCommand("docker", "compose", "version"); err != nil {
		return fmt.Errorf("docker compose not found. Please install Docker Compose")
	}

	out, err := getCommandOutput("docker", "compose", "ps", composeDBService)
	status := strings.ToLower(out)
	if err == nil && (strings.Contains(status, "up") || strings.Contains(status, "running")) {
		PrintSuccess("Database is already running")
		return nil
	}

	PrintInfo("Starting database...")
	if err := runCommandVerbose("docker", "compose", "up", "-d", composeDBService); err != nil {
		return fmt.Errorf("error starting database: %v", err)
	}

	dbUser := getEnv("DB_USER", "dev")
	dbName := getEnv("DB_NAME", "fieldsync")
	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := runCommand("docker", "compose", "exec", "-T", composeDBService, "pg_isready", "-U", dbUser, "-d", dbName); err == nil {
			PrintSuccess("Database is ready")
			return nil
		}
		fmt.Printf("Waiting for database... (%d/%d)\n", attempt, maxAttempts)
		time.Sleep(time.Second)
	}

	PrintError("Database failed to start after %d seconds", maxAttempts)
	_ = runCommandVerbose("docker", "compose", "logs", composeDBService)
	return fmt.Errorf("database failed to start")
}
