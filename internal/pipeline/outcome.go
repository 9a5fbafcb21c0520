package pipeline

import (
	"fmt"

	"courier/internal/history"
)

// Outcome counts per-file results of one batch operation. Failed holds the
// names that did not make it; completed work is never rolled back.
type Outcome struct {
	Attempted int
	Succeeded int
	Failed    []string
}

// Complete reports whether every attempted file succeeded.
func (o Outcome) Complete() bool {
	return len(o.Failed) == 0
}

// FailedCount returns the number of failed files.
func (o Outcome) FailedCount() int {
	return len(o.Failed)
}

// Report aggregates everything one pipeline run did.
type Report struct {
	Kind       history.RunKind
	RunID      string
	Transfer   Outcome
	Missing    []string
	BackupPath string
	Backup     Outcome
}

// Status classifies the run for history and IPC: success when nothing
// failed, partial when something failed but work was completed, failed when
// nothing got through.
func (r *Report) Status(err error) history.RunStatus {
	if err == nil {
		return history.StatusSuccess
	}
	if r.Transfer.Succeeded > 0 || r.Backup.Succeeded > 0 {
		return history.StatusPartial
	}
	return history.StatusFailed
}

// Summary renders a short human line for logs and IPC notes.
func (r *Report) Summary() string {
	outcome := r.Transfer
	verb := "transferred"
	if r.Kind == history.RunBackup {
		outcome = r.Backup
		verb = "backed up"
	}
	if outcome.Complete() {
		return fmt.Sprintf("%d reports %s", outcome.Succeeded, verb)
	}
	return fmt.Sprintf("%d of %d reports %s", outcome.Succeeded, outcome.Attempted, verb)
}
