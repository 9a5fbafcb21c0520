// Package daemon coordinates the long-running Courier process.
//
// It wires configuration, run history storage, the change-detection engine,
// the transfer pipeline, and the scheduler into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon exposes the
// operations the control socket needs: forcing transfers and backups, reading
// run history and change events, and sending test alerts.
//
// Keep orchestration logic here: the pipeline steps and the scheduling loop
// live in their own packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
