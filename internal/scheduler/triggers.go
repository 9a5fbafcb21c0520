package scheduler

import (
	"sync"

	"courier/internal/history"
)

// Triggers is the pair of edge-triggered force requests. A request stays
// pending until the loop consumes it at an iteration boundary; repeated
// requests before then collapse into one run.
type Triggers struct {
	mu          sync.Mutex
	transfer    bool
	transferVia history.Trigger
	backup      bool
	backupVia   history.Trigger
}

// RequestTransfer asks for a full pipeline run outside the schedule.
func (t *Triggers) RequestTransfer(via history.Trigger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transfer = true
	t.transferVia = normalizeTrigger(via)
}

// RequestBackup asks for a backup run outside the schedule.
func (t *Triggers) RequestBackup(via history.Trigger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.backup = true
	t.backupVia = normalizeTrigger(via)
}

func (t *Triggers) consumeTransfer() (history.Trigger, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.transfer {
		return "", false
	}
	t.transfer = false
	return t.transferVia, true
}

func (t *Triggers) consumeBackup() (history.Trigger, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.backup {
		return "", false
	}
	t.backup = false
	return t.backupVia, true
}

func normalizeTrigger(via history.Trigger) history.Trigger {
	switch via {
	case history.TriggerManual, history.TriggerSignal, history.TriggerScheduled:
		return via
	default:
		return history.TriggerManual
	}
}
