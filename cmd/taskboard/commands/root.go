// Package commands implements the taskboard admin CLI. Every command reads the same
// environment (and optional .env file) as the server.
package commands

import (
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/storage"
	"github.com/spf13/cobra"
)

// now is replaced in tests
var now = time.Now

// NewRootCmd creates the taskboard command tree
func NewRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Admin tool for the taskboard server",
		Long:          "Inspect, back up and reset a taskboard's storage, try the priority heuristic and follow board events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")

	rootCmd.AddCommand(NewSnapshotCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewWipeCmd())
	rootCmd.AddCommand(NewPriorityCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewCheckCmd())
	return rootCmd
}

// openAdapter opens the configured storage. The caller closes the returned backend.
func openAdapter() (*config.Config, *storage.Adapter, storage.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StorageDriver == storage.DriverMemory {
		return nil, nil, nil, fmt.Errorf("the memory storage driver is private to the server process")
	}
	backend, err := storage.Open(cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return cfg, storage.NewAdapter(backend, cfg.StoragePrefix), backend, nil
}
