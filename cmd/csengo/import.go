package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/httpapi"
	"github.com/beni69/csengo/internal/storage"
	"github.com/beni69/csengo/internal/task"
)

// importCommand reads a JSON array in the /api/export wire shape from
// stdin and inserts each Scheduled/Recurring task into the Store. Now
// tasks have no server to play them here and are skipped; a running
// `csengo serve` picks up every inserted task on its next startup
// recovery pass since nothing here schedules a running timer.
func importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Insert tasks from a JSON array read on stdin",
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

			var in []httpapi.TaskJSON
			if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
				return fmt.Errorf("decode stdin: %w", err)
			}

			var inserted, skipped, failed int
			for _, j := range in {
				t, err := httpapi.JSONToTask(j)
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping malformed task: %v\n", err)
					failed++
					continue
				}
				if t.Kind() == task.KindNow {
					skipped++
					continue
				}
				if err := store.InsertTask(t); err != nil {
					if e, ok := errs.As(err); ok && e.Kind == errs.KindNameConflict {
						skipped++
						continue
					}
					fmt.Fprintf(os.Stderr, "failed to insert %q: %v\n", t.TaskName(), err)
					failed++
					continue
				}
				inserted++
			}

			fmt.Printf("imported %d, skipped %d, failed %d\n", inserted, skipped, failed)
			return nil
		},
	}
}
