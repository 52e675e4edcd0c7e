// Package config loads tasklog's settings from defaults, an optional
// config.yaml, a .env file and TASKLOG_-prefixed environment variables, in
// increasing order of precedence, and validates the result before any
// component starts.
package config
