// Package snapshot materializes, schedules and serves daily task snapshots.
//
// Engine writes one day's snapshots in a single transaction and is safe to
// call repeatedly for the same day. Scheduler fires the engine at every UTC
// midnight, retries storage failures and raises an alert when it gives up.
// QueryService reads snapshots back through the read cache.
package snapshot
