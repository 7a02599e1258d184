package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/httpapi"
	"github.com/beni69/csengo/internal/storage"
)

// exportCommand dumps every persisted task as JSON to stdout, in the
// same wire shape /api/export serves, for backup or migration between
// deployments without starting the HTTP server.
func exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every persisted task as JSON to stdout",
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

			tasks, err := store.ListTasks()
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			out := make([]httpapi.TaskJSON, len(tasks))
			for i, t := range tasks {
				out[i] = httpapi.TaskToJSON(t)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
