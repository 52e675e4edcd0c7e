// Package main implements the tasklog command: the HTTP server with its
// daily snapshot scheduler, database migrations, and one-shot operational
// commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tasklog: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand assembles the command tree.
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tasklog",
		Short: "Task tracking service with daily snapshots",
		Long: "tasklog records task state changes with an audit trail and materializes " +
			"a snapshot of every active task at each UTC midnight.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
