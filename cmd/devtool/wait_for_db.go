package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/osse101/FieldSync_Go/internal/database"
)

const (
	waitMaxRetries    = 30
	waitRetryInterval = 2 * time.Second
)

type WaitForDBCommand struct{}

func (c *WaitForDBCommand) Name() string {
	return "wait-for-db"
}

func (c *WaitForDBCommand) Description() string {
	return "Wait for database to be ready (with retries)"
}

func (c *WaitForDBCommand) Run(ctx context.Context, args []string) error {
	PrintHeader("Waiting for database...")
	return waitForDB(ctx, dbURL(), waitMaxRetries, waitRetryInterval)
}

func waitForDB(ctx context.Context, url string, maxRetries uint64, interval time.Duration) error {
	attempt := 0
	backoff := retry.WithMaxRetries(maxRetries-1, retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pool, err := database.NewPool(ctx, url, 1, time.Minute, time.Minute)
		if err != nil {
			fmt.Printf("Database not ready (%d/%d): %v\n", attempt, maxRetries, err)
			return retry.RetryableError(err)
		}
		pool.Close()
		return nil
	})
	if err != nil {
		return fmt.Errorf("database failed to become ready after %d attempts: %w", attempt, err)
	}
	PrintSuccess("Database is ready")
	return nil
}
