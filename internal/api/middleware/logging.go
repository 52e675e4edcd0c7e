package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasklog/internal/platform/logger"
)

// RequestObserver receives one call per completed request.
type RequestObserver interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// NewRequestLogger logs every completed request and reports it to obs,
// which may be nil. Requests are labelled with their chi route pattern so
// that path parameters do not explode label cardinality.
func NewRequestLogger(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			logger.FromContext(r.Context()).Info("request completed",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", elapsed),
				slog.String("request_id", chimw.GetReqID(r.Context())))

			if obs != nil {
				obs.HTTPRequest(r.Method, route, status, elapsed)
			}
		})
	}
}
