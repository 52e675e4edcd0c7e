package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tasklog/internal/redact"
)

// LogHandler writes every report as an error record.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With(slog.String("component", "alert"))}
}

// HandleAlert implements Handler.
func (h *LogHandler) HandleAlert(ctx context.Context, r Report) error {
	h.logger.ErrorContext(ctx, "snapshot day left unmaterialized",
		slog.String("alert_id", r.ID.String()),
		slog.String("day", r.DayString()),
		slog.Int("attempts", r.Attempts),
		slog.String("last_error", r.LastError),
		slog.Time("occurred_at", r.OccurredAt))
	return nil
}

// Counter is the metrics hook used by MetricsHandler.
type Counter interface {
	SnapshotAlert()
}

// MetricsHandler counts reports.
type MetricsHandler struct {
	counter Counter
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(c Counter) *MetricsHandler {
	return &MetricsHandler{counter: c}
}

// HandleAlert implements Handler.
func (h *MetricsHandler) HandleAlert(context.Context, Report) error {
	if h.counter != nil {
		h.counter.SnapshotAlert()
	}
	return nil
}

// webhookPayload is the JSON body posted to the webhook.
type webhookPayload struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Day        string    `json:"day"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WebhookHandler posts reports as JSON to an HTTP endpoint.
type WebhookHandler struct {
	url    string
	client *http.Client
}

// NewWebhookHandler creates a WebhookHandler. A nil client gets one with
// timeout; a non-positive timeout defaults to ten seconds.
func NewWebhookHandler(url string, client *http.Client, timeout time.Duration) *WebhookHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookHandler{url: url, client: client}
}

// HandleAlert implements Handler. Any non-2xx response is an error.
func (h *WebhookHandler) HandleAlert(ctx context.Context, r Report) error {
	body, err := json.Marshal(webhookPayload{
		ID:         r.ID.String(),
		Event:      "snapshot.failed",
		Day:        r.DayString(),
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		OccurredAt: r.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request for %s: %w", redact.URL(h.url), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert to %s: %s", redact.URL(h.url), redact.Error(err))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert webhook %s responded with status %d", redact.URL(h.url), resp.StatusCode)
	}
	return nil
}
