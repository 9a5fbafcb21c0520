package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"courier/internal/alerts"
	"courier/internal/changelog"
	"courier/internal/config"
	"courier/internal/history"
	"courier/internal/logging"
	"courier/internal/scan"
)

// Recorder persists run lifecycle facts. *history.Store satisfies it; a nil
// recorder disables persistence.
type Recorder interface {
	StartRun(ctx context.Context, kind history.RunKind, trigger history.Trigger) (*history.Run, error)
	FinishRun(ctx context.Context, runID string, update history.RunUpdate) error
}

// Pipeline executes the locked report operations against the managed
// directories.
type Pipeline struct {
	cfg      *config.Config
	scanner  *scan.Scanner
	sink     changelog.Sink
	recorder Recorder
	alerts   alerts.Service
	logger   *slog.Logger

	mu sync.Mutex
}

// New wires a Pipeline. sink and recorder may be nil; alertSvc nil falls back
// to a noop service.
func New(cfg *config.Config, scanner *scan.Scanner, sink changelog.Sink, recorder Recorder, alertSvc alerts.Service, logger *slog.Logger) *Pipeline {
	if alertSvc == nil {
		alertSvc = alerts.Noop()
	}
	return &Pipeline{
		cfg:      cfg,
		scanner:  scanner,
		sink:     sink,
		recorder: recorder,
		alerts:   alertSvc,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes the full sequence: lock, transfer, missing-report check,
// backup, unlock. Steps run in order regardless of earlier failures; the
// returned error joins everything that went wrong. The missing-report check
// is advisory and never contributes to the error.
func (p *Pipeline) Run(ctx context.Context, trigger history.Trigger) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := &Report{Kind: history.RunTransfer}
	run := p.startRun(ctx, history.RunTransfer, trigger)
	if run != nil {
		report.RunID = run.RunID
	}
	var errs []error

	if err := p.Lock(); err != nil {
		p.logger.Warn("directory lock incomplete, proceeding anyway", logging.Error(err))
		errs = append(errs, err)
	}

	transfer, err := p.Transfer(ctx)
	report.Transfer = transfer
	if err != nil {
		errs = append(errs, err)
	}

	missing, err := p.MissingDepartments(ctx)
	if err != nil {
		p.logger.Error("missing-report check did not run", logging.Error(err))
	} else {
		report.Missing = missing
	}

	backupPath, backup, err := p.Backup(ctx)
	report.BackupPath = backupPath
	report.Backup = backup
	if err != nil {
		errs = append(errs, err)
	}

	if err := p.Unlock(); err != nil {
		p.logger.Error("directory unlock incomplete", logging.Error(err))
		errs = append(errs, err)
	}

	runErr := errors.Join(errs...)
	p.finishRun(ctx, run, report, runErr)
	p.alertFailure(ctx, history.RunTransfer, runErr)
	return report, runErr
}

// RunBackup executes lock, backup, unlock without touching the intake
// directory.
func (p *Pipeline) RunBackup(ctx context.Context, trigger history.Trigger) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := &Report{Kind: history.RunBackup}
	run := p.startRun(ctx, history.RunBackup, trigger)
	if run != nil {
		report.RunID = run.RunID
	}
	var errs []error

	if err := p.Lock(); err != nil {
		p.logger.Warn("directory lock incomplete, proceeding anyway", logging.Error(err))
		errs = append(errs, err)
	}

	backupPath, backup, err := p.Backup(ctx)
	report.BackupPath = backupPath
	report.Backup = backup
	if err != nil {
		errs = append(errs, err)
	}

	if err := p.Unlock(); err != nil {
		p.logger.Error("directory unlock incomplete", logging.Error(err))
		errs = append(errs, err)
	}

	runErr := errors.Join(errs...)
	p.finishRun(ctx, run, report, runErr)
	p.alertFailure(ctx, history.RunBackup, runErr)
	return report, runErr
}

func (p *Pipeline) startRun(ctx context.Context, kind history.RunKind, trigger history.Trigger) *history.Run {
	if p.recorder == nil {
		return nil
	}
	run, err := p.recorder.StartRun(ctx, kind, trigger)
	if err != nil {
		p.logger.Warn("run not recorded", logging.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *history.Run, report *Report, runErr error) {
	if p.recorder == nil || run == nil {
		return
	}
	update := history.RunUpdate{
		Status:             report.Status(runErr),
		MissingDepartments: report.Missing,
		BackupPath:         report.BackupPath,
	}
	switch report.Kind {
	case history.RunBackup:
		update.Attempted = report.Backup.Attempted
		update.Succeeded = report.Backup.Succeeded
		update.FailedFiles = report.Backup.Failed
	default:
		update.Attempted = report.Transfer.Attempted
		update.Succeeded = report.Transfer.Succeeded
		update.FailedFiles = report.Transfer.Failed
	}
	if runErr != nil {
		update.ErrorMessage = runErr.Error()
	}
	if err := p.recorder.FinishRun(ctx, run.RunID, update); err != nil {
		p.logger.Warn("run outcome not recorded", logging.Error(err))
	}
}

func (p *Pipeline) alertFailure(ctx context.Context, kind history.RunKind, runErr error) {
	if runErr == nil {
		return
	}
	if err := p.alerts.RunFailed(ctx, string(kind), runErr.Error()); err != nil {
		p.logger.Warn("failure alert not delivered", logging.Error(err))
	}
}

func (p *Pipeline) record(rec changelog.Record) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Record(rec); err != nil {
		p.logger.Warn("change record not persisted",
			logging.String(logging.FieldFile, rec.File),
			logging.Error(err),
		)
	}
}
