package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

// slogGooseLogger adapts the goose logger interface to use slog
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error messages to slog.Error.
// It does not exit; the error reaches the command as a return value.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// configureGoose points goose at the embedded migrations.
func configureGoose(logger *slog.Logger) error {
	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(postgres.MigrationsTable)
	goose.SetLogger(&slogGooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// runMigration executes one goose command against db.
func runMigration(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if err := configureGoose(logger); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, postgres.MigrationsDir)
	case "down":
		return goose.DownContext(ctx, db, postgres.MigrationsDir)
	case "reset":
		return goose.ResetContext(ctx, db, postgres.MigrationsDir)
	case "status":
		return goose.StatusContext(ctx, db, postgres.MigrationsDir)
	case "version":
		version, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		logger.Info("Current migration version", "version", version)
		return nil
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the database schema with the migrations embedded in the binary.",
	}

	commands := []struct {
		use, short string
	}{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back the most recent migration"},
		{"reset", "Roll back all migrations"},
		{"status", "Print the status of every migration"},
		{"version", "Print the current migration version"},
	}

	for _, c := range commands {
		command := c.use
		migrateCmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, baseLogger, err := loadAppConfig()
				if err != nil {
					return err
				}

				// A correlation ID ties together every log line of one migration run.
				logger := baseLogger.With(
					"correlation_id", uuid.NewString(),
					"component", "migrations",
					"command", command,
				)

				db, err := setupAppDatabase(cmd.Context(), cfg.Database, logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := db.Close(); err != nil {
						logger.Error("Error closing database connection", "error", err)
					}
				}()

				started := time.Now()
				err = runMigration(cmd.Context(), db, command, logger)
				logger.Info("Migration operation completed",
					"operation", "goose "+command,
					"duration_ms", time.Since(started).Milliseconds(),
					"success", err == nil)
				if err != nil {
					return fmt.Errorf("migration %s failed: %w", command, err)
				}
				return nil
			},
		})
	}

	return migrateCmd
}
