package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/tasklog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "info", ShutdownTimeout: time.Second},
		Redis:  config.RedisConfig{Enabled: false},
		Cache:  config.CacheConfig{TTL: time.Hour},
		Scheduler: config.SchedulerConfig{
			MaxAttempts: 3,
			RetryDelay:  time.Minute,
			RunTimeout:  time.Minute,
		},
		Alert: config.AlertConfig{WebhookTimeout: time.Second},
		Auth: config.AuthConfig{
			JWTSecret:     "0123456789abcdef0123456789abcdef",
			TokenLifetime: time.Hour,
		},
	}
}

func newTestApplication(t *testing.T) (*application, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	app, err := newApplication(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		mock.ExpectClose()
		_ = app.cleanup(context.Background())
	})
	return app, mock
}

func TestRootCommand_Tree(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "reset"},
		{"migrate", "status"},
		{"migrate", "version"},
		{"snapshot", "run"},
		{"import"},
		{"token"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	runCmd, _, err := root.Find([]string{"snapshot", "run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("date"))
}

func TestRootCommand_RequiredFlags(t *testing.T) {
	for _, args := range [][]string{{"import"}, {"token"}} {
		root := newRootCommand()
		root.SetArgs(args)
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)

		err := root.Execute()
		require.Error(t, err, args[0])
		assert.Contains(t, err.Error(), "required flag")
	}
}

func TestRouter(t *testing.T) {
	app, mock := newTestApplication(t)
	router := app.setupRouter()

	token, err := app.tokens.GenerateToken(context.Background(), "alice")
	require.NoError(t, err)

	t.Run("health", func(t *testing.T) {
		mock.ExpectPing()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","cache":"ok"}}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "tasklog_http_requests_total")
	})

	t.Run("api requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated request reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/snapshots/not-a-uuid", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid snapshot ID")
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
