package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/storage"
)

// migrateCommand runs the Store's startup migrations without serving,
// for operators who want to run them as a separate deploy step.
func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := storage.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			fmt.Printf("database at %s is up to date (schema version %d)\n", cfg.Storage.DatabasePath, config.DBVersion)
			return nil
		},
	}
}
