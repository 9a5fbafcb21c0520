// Package logtail reads daemon log files with bounded memory usage.
//
// It supports "last N lines" reads via a negative offset, forward reads from
// a byte offset, and follow mode that waits for new lines up to a deadline.
// Callers supply context deadlines so follow polling shuts down cleanly when
// the CLI exits.
package logtail
