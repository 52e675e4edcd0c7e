// Package logger configures log/slog for the service and carries
// request- or job-scoped loggers through context.Context.
package logger
