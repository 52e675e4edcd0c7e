// Package service contains the task use cases. It orchestrates the task,
// audit and owner stores (defined in internal/store) and keeps the read
// cache coherent with every committed write.
//
// Key components:
//
//   - TaskService: create, update, soft delete and read tasks. A status
//     change writes its audit entry in the same transaction as the task
//     update, and the read cache is invalidated only after that transaction
//     commits.
//   - AuditTrail: append-only record of status transitions with
//     non-decreasing change times per task.
//
// Every error returned from this package matches exactly one of the domain
// taxonomy errors (domain.ErrValidation, ErrNotFound, ErrConflict,
// ErrStorage) with errors.Is.
package service
