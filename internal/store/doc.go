// Package store declares the persistence contracts for tasks, owners, the
// status audit log and daily snapshots, along with the error sentinels every
// implementation maps its failures onto and the transaction helper services
// use to group writes.
//
// Implementations live under platform/; this package imports no driver.
package store
