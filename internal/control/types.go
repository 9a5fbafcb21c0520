package control

import "time"

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse reports the daemon process id.
type PingResponse struct {
	PID int `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and scheduler status.
type StatusResponse struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	NextTransfer   time.Time `json:"next_transfer"`
	LastRunID      string    `json:"last_run_id"`
	LastRunKind    string    `json:"last_run_kind"`
	LastRunStatus  string    `json:"last_run_status"`
	LastRunSummary string    `json:"last_run_summary"`
	LastRunError   string    `json:"last_run_error"`
	LastBackupPath string    `json:"last_backup_path"`
	IntakeDir      string    `json:"intake_dir"`
	PublishedDir   string    `json:"published_dir"`
	BackupDir      string    `json:"backup_dir"`
	DatabasePath   string    `json:"database_path"`
	ChangeLogPath  string    `json:"change_log_path"`
	LockPath       string    `json:"lock_path"`
	FIFOPath       string    `json:"fifo_path"`
}

// TransferRequest flags the scheduler to run the transfer sequence.
type TransferRequest struct{}

// TransferResponse acknowledges the request.
type TransferResponse struct {
	Requested bool   `json:"requested"`
	Message   string `json:"message"`
}

// BackupRequest flags the scheduler to run a backup.
type BackupRequest struct{}

// BackupResponse acknowledges the request.
type BackupResponse struct {
	Requested bool   `json:"requested"`
	Message   string `json:"message"`
}

// RunSummary is the wire representation of a recorded pipeline run.
type RunSummary struct {
	RunID              string     `json:"run_id"`
	Kind               string     `json:"kind"`
	Trigger            string     `json:"trigger"`
	Status             string     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	Attempted          int        `json:"attempted"`
	Succeeded          int        `json:"succeeded"`
	Failed             int        `json:"failed"`
	FailedFiles        []string   `json:"failed_files,omitempty"`
	MissingDepartments []string   `json:"missing_departments,omitempty"`
	BackupPath         string     `json:"backup_path,omitempty"`
	ErrorMessage       string     `json:"error_message,omitempty"`
}

// HistoryRequest fetches recent pipeline runs.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains recent runs, newest first.
type HistoryResponse struct {
	Runs []RunSummary `json:"runs"`
}

// ChangeEvent is the wire representation of one observed change.
type ChangeEvent struct {
	Time      time.Time `json:"time"`
	User      string    `json:"user"`
	File      string    `json:"file"`
	Action    string    `json:"action"`
	Directory string    `json:"directory"`
}

// ChangesRequest fetches recent change events.
type ChangesRequest struct {
	Limit int `json:"limit"`
}

// ChangesResponse contains recent change events, newest first.
type ChangesResponse struct {
	Events []ChangeEvent `json:"events"`
}

// TestAlertRequest triggers an alert delivery test.
type TestAlertRequest struct{}

// TestAlertResponse reports the alert test outcome.
type TestAlertResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
