// Package scheduler runs the daemon's event loop: the daily transfer
// pipeline at the configured wall-clock minute, change detection on the
// intake directory every poll interval, and forced runs when an operator
// requests one.
//
// The loop is a polling design with a fixed one-second quantum. Force
// requests and shutdown are edge-triggered flags observed only at iteration
// boundaries; a pipeline run in flight always finishes before the loop looks
// at anything else. Scheduled-time matching is exact-minute equality, fired
// at most once per matching minute.
package scheduler
