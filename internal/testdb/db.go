package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/tasklog/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection checks.
const TestTimeout = 5 * time.Second

// tbLogger routes goose output to the test log.
type tbLogger struct{ tb testing.TB }

func (l tbLogger) Printf(format string, v ...interface{}) {
	l.tb.Logf("goose: %s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l tbLogger) Fatalf(format string, v ...interface{}) {
	l.tb.Fatalf("goose: %s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// GetTestDB opens and pings the configured test database.
func GetTestDB() (*sql.DB, error) {
	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		return nil, formatEnvVarError()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open test database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, formatDBConnectionError(pingErr, dbURL)
	}
	return db, nil
}

// GetTestDBWithT returns a database connection for testing, closed when the
// test ends. The test is skipped when no database is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if !IsIntegrationTestEnvironment() {
		t.Skipf("%v - skipping integration test", formatEnvVarError())
	}

	db, err := GetTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SetupTestDatabaseSchema applies the embedded migrations. It is idempotent.
func SetupTestDatabaseSchema(t *testing.T, db *sql.DB) {
	t.Helper()

	goose.SetLogger(tbLogger{tb: t})
	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(postgres.MigrationsTable)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, postgres.MigrationsDir), "apply migrations")
}
