package scheduler

import (
	"time"

	"courier/internal/history"
)

// Snapshot is a point-in-time view of the loop for the control surface.
type Snapshot struct {
	State          State
	StartedAt      time.Time
	NextTransfer   time.Time
	LastPoll       time.Time
	LastRunID      string
	LastRunKind    history.RunKind
	LastRunStatus  history.RunStatus
	LastRunSummary string
	LastRunError   string
	LastBackupPath string
}

// Status reports the loop state and the most recent run.
func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:        s.state,
		StartedAt:    s.startedAt,
		LastPoll:     s.lastPoll,
		NextTransfer: nextTransferTime(s.now(), s.cfg.Schedule.TransferHour, s.cfg.Schedule.TransferMinute),
	}
	if s.lastReport != nil {
		snap.LastRunID = s.lastReport.RunID
		snap.LastRunKind = s.lastReport.Kind
		snap.LastRunStatus = s.lastReport.Status(s.lastErr)
		snap.LastRunSummary = s.lastReport.Summary()
		snap.LastBackupPath = s.lastReport.BackupPath
	}
	if s.lastErr != nil {
		snap.LastRunError = s.lastErr.Error()
	}
	return snap
}

func nextTransferTime(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
