// Package domain contains the core entities of the task ledger: mutable tasks,
// the append-only audit trail of their status transitions, and the immutable
// daily snapshots materialized from them. It is independent of any storage or
// delivery mechanism.
package domain
