package history

import "time"

// RunKind distinguishes the two pipeline flavors.
type RunKind string

const (
	RunTransfer RunKind = "transfer"
	RunBackup   RunKind = "backup"
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerSignal    Trigger = "signal"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID                 int64
	RunID              string
	Kind               RunKind
	Trigger            Trigger
	StartedAt          time.Time
	FinishedAt         *time.Time
	Status             RunStatus
	Attempted          int
	Succeeded          int
	Failed             int
	FailedFiles        []string
	MissingDepartments []string
	BackupPath         string
	ErrorMessage       string
}

// Duration returns how long the run took, or zero while it is still open.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunUpdate carries the terminal facts of a run into FinishRun.
type RunUpdate struct {
	Status             RunStatus
	Attempted          int
	Succeeded          int
	FailedFiles        []string
	MissingDepartments []string
	BackupPath         string
	ErrorMessage       string
}
