// Package main provides the fieldagent CLI: offline capture into the local
// store and sync against a FieldSync server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// version is set at build time
var version = "dev"

var (
	// configDir is set by the --config-dir flag
	configDir string

	// jsonOutput switches command output to JSON
	jsonOutput bool

	cfg   *agentConfig
	store *localstore.Store
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fieldagent",
	Short: "Capture field visits offline and sync them to the server",
	Long: `fieldagent records store visits and merchandising observations in a
local database that works without a connection, and pushes them to a
FieldSync server when one is reachable.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openStore,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return closeStore() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fieldagent %s (schema v%d)\n", version, localstore.LatestVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default: ~/.fieldagent)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(checkinCmd, checkoutCmd, sessionCmd)
	rootCmd.AddCommand(recordCmd, listCmd, countCmd, exportCmd, importCmd)
	rootCmd.AddCommand(loginCmd, syncCmd, pullCmd, pendingCmd, watchCmd)
}

// openStore loads the config, sets up logging and opens the local store
func openStore(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	c, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	logger.InitLoggerWithWriter(logger.NewConfig(cfg.LogLevel, logger.LogFormatText, logger.AgentServiceName, version, "cli", false), os.Stderr)

	s, err := localstore.Open(commandContext(cmd), cfg.DBPath, localstore.LatestVersion, localstore.Options{})
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	store = s
	return nil
}

func closeStore() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

// commandContext returns the command's context, or Background when cobra
// was executed without one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
