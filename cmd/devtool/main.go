package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/osse101/FieldSync_Go/internal/logger"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger.InitLogger(logger.NewConfig(getEnv("LOG_LEVEL", "debug"), "text", appName, "dev", envDev, false))

	registry := NewRegistry()
	registry.Register(&MigrateCommand{})
	registry.Register(&WaitForDBCommand{})
	registry.Register(&CheckDBCommand{})
	registry.Register(&CheckDepsCommand{})
	registry.Register(&DoctorCommand{})
	registry.Register(&HealthCheckCommand{})
	registry.Register(&SeedCommand{})
	registry.Register(&EntrypointCommand{})
	registry.Register(&TablesCommand{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := registry.Run(ctx, os.Args[1:])
	stop()

	if errors.Is(err, ErrUnknownCommand) {
		PrintError("%v", err)
		registry.PrintHelp(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		PrintError("%v", err)
		os.Exit(1)
	}
}
