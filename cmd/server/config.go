package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasklog/internal/config"
	"github.com/phrazzld/tasklog/internal/platform/logger"
)

// loadAppConfig loads the application configuration and sets up the
// default logger from it.
func loadAppConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"redis_enabled", cfg.Redis.Enabled,
		"scheduler_enabled", cfg.Scheduler.Enabled)
	if cfg.Alert.WebhookURL != "" {
		l.Debug("Alert configuration", "webhook_present", true)
	}

	return cfg, l, nil
}
