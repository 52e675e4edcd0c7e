package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
)

// Report describes a day the scheduler gave up on.
type Report struct {
	ID         uuid.UUID
	Day        time.Time
	Attempts   int
	LastError  string
	OccurredAt time.Time
}

// NewReport builds a Report for day after attempts failed with lastErr.
func NewReport(day time.Time, attempts int, lastErr error, now time.Time) Report {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return Report{
		ID:         uuid.New(),
		Day:        domain.Day(day),
		Attempts:   attempts,
		LastError:  msg,
		OccurredAt: now.UTC(),
	}
}

// DayString returns the report day as YYYY-MM-DD.
func (r Report) DayString() string {
	return domain.FormatDay(r.Day)
}

// Handler receives alert reports.
type Handler interface {
	HandleAlert(ctx context.Context, report Report) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, report Report) error

// HandleAlert implements Handler.
func (f HandlerFunc) HandleAlert(ctx context.Context, report Report) error {
	return f(ctx, report)
}

// Dispatcher fans reports out to registered handlers.
type Dispatcher struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given handlers.
func NewDispatcher(logger *slog.Logger, handlers ...Handler) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handlers: make([]Handler, 0, len(handlers)),
		logger:   logger.With(slog.String("component", "alert_dispatcher")),
	}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

// Register adds a handler. Nil handlers are ignored.
func (d *Dispatcher) Register(h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// HandleAlert delivers report to every handler. A failing handler does not
// stop delivery to the rest; the first error is returned.
func (d *Dispatcher) HandleAlert(ctx context.Context, report Report) error {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Warn("no alert handlers registered",
			slog.String("alert_id", report.ID.String()),
			slog.String("day", report.DayString()))
		return nil
	}

	var firstErr error
	for i, h := range handlers {
		if err := h.HandleAlert(ctx, report); err != nil {
			d.logger.Error("alert handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i),
				slog.String("alert_id", report.ID.String()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
