// Package logging assembles the structured slog loggers used across the
// daemon.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run identifiers, operations, and triggers. The package also
// provides a no-op logger for tests and an age-based retention sweep for the
// log directory.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing.
package logging
