// Package logging assembles structured slog loggers and formatting helpers used
// across shipwright.
//
// It owns the console and JSON handlers, centralizes level plumbing, and
// exposes context-aware helpers so step code automatically tags log lines with
// the run ID and step name. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
package logging
