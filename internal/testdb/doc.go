// Package testdb provides helpers for integration tests that run against a
// real PostgreSQL database.
//
// The database is selected with TASKLOG_TEST_DB_URL (falling back to
// DATABASE_URL). When neither is set, tests that ask for a connection are
// skipped rather than failed, so `go test ./...` stays green on machines
// without Postgres.
//
// Typical use in a test carrying the integration build tag:
//
//	db := testdb.GetTestDBWithT(t)
//	testdb.SetupTestDatabaseSchema(t, db)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		store := postgres.NewPostgresTaskStore(tx, nil)
//		// ...
//	})
//
// Migrations are the ones embedded in the postgres package, so tests always
// run against the schema the binary ships with.
package testdb
