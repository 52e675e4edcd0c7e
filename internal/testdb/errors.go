package testdb

import (
	"fmt"
	"strings"

	"github.com/phrazzld/tasklog/internal/redact"
)

// formatDBConnectionError creates a detailed error message for database connection failures.
// The URL is redacted.
func formatDBConnectionError(baseErr error, dbURL string) error {
	return fmt.Errorf("database connection failed: %w\n"+
		"Database URL used: %s\nCI environment: %v\n"+
		"Please check:\n"+
		"1. PostgreSQL service is running\n"+
		"2. Credentials and connection string are correct\n"+
		"3. Database exists and is accessible",
		baseErr, redact.URL(dbURL), isCIEnvironment())
}

// formatEnvVarError explains which variables select the test database.
func formatEnvVarError() error {
	return fmt.Errorf("no test database configured: set one of %s",
		strings.Join(databaseURLEnvVars, ", "))
}
