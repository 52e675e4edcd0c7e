package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/importer"
	"github.com/phrazzld/tasklog/internal/service/auth"
	"github.com/spf13/cobra"
)

// bootstrap loads configuration, opens the database and wires the
// application. The caller owns cleanup.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, logger, err := loadAppConfig()
	if err != nil {
		return nil, err
	}

	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the daily snapshot scheduler",
		Long: "Start the HTTP server. Unless scheduler.enabled is false, a snapshot of every " +
			"active task is taken at each UTC midnight. Migrations are not applied; run " +
			"`tasklog migrate up` first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}

			code, err := app.Run(cmd.Context())
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("shutdown finished with exit code %d", code)
			}
			return nil
		},
	}
}

func newSnapshotCommand() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Daily snapshot commands",
	}

	var date string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize the snapshots of one day now",
		Long: "Run the snapshot job once with the scheduler's retry and alert policy. " +
			"Defaults to today (UTC). Exits non-zero when the run fails.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			app, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.cleanup(context.Background()) }()

			day := app.clock.Today()
			if date != "" {
				if day, err = domain.ParseDay(date); err != nil {
					return err
				}
			}

			report := app.scheduler.Trigger(ctx, day)
			if err := printJSON(cmd, map[string]any{
				"date":          domain.FormatDay(report.Day),
				"outcome":       report.Outcome,
				"attempts":      report.Attempts,
				"created_count": report.Result.CreatedCount,
			}); err != nil {
				return err
			}
			if !report.Succeeded() {
				return fmt.Errorf("snapshot run for %s failed: %w", domain.FormatDay(report.Day), report.Err)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&date, "date", "", "day to materialize (YYYY-MM-DD), defaults to today UTC")

	snapshotCmd.AddCommand(runCmd)
	return snapshotCmd
}

func newImportCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create tasks from a CSV file",
		Long: "Import tasks from a CSV file with the columns task_name, description, status, " +
			"priority, created_at and assigned_user. Unknown owners are provisioned.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer func() { _ = f.Close() }()

			records, err := importer.ReadCSV(f)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			app, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.cleanup(context.Background()) }()

			summary, err := app.importer.Import(ctx, records)
			if printErr := printJSON(cmd, summary); printErr != nil {
				return errors.Join(err, printErr)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the CSV file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an actor",
		Long:  "Sign a bearer token whose subject is the actor recorded on status changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadAppConfig()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(cfg.Auth, clock.System())
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(cmd.Context(), actor)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor name to embed as the token subject (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
