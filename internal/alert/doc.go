// Package alert is the operational alerting channel for snapshot days that
// could not be materialized.
//
// The scheduler hands a Report to a Dispatcher, which fans it out to every
// registered Handler: a structured log record, an optional webhook and a
// metrics counter.
package alert
