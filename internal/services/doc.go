// Package services defines shared utilities consumed across the daemon's
// pipeline and support code.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform (scan vs transfer vs lock vs channel vs startup).
//   - Context helpers that stamp run identifiers, operation names, and trigger
//     labels for logging.
//
// Use these helpers when wiring new operations so error handling and
// observability stay consistent across components.
package services
