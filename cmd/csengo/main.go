// Command csengo runs the school-bell broadcast server: serving the
// htmx front-end and /api surface by default, or one of the operator
// subcommands below.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "csengo",
		Short: "csengo broadcast server",
		// Bare `csengo` serves, same as `csengo serve`.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	root.AddCommand(serveCommand())
	root.AddCommand(migrateCommand())
	root.AddCommand(exportCommand())
	root.AddCommand(importCommand())

	return root
}
