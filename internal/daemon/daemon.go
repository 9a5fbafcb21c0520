package daemon

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"courier/internal/alerts"
	"courier/internal/changelog"
	"courier/internal/config"
	"courier/internal/history"
	"courier/internal/logging"
	"courier/internal/pipeline"
	"courier/internal/scheduler"
	"courier/internal/services"
)

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *history.Store
	pipe   *pipeline.Pipeline
	sched  *scheduler.Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Scheduler     scheduler.Snapshot
	IntakeDir     string
	PublishedDir  string
	BackupDir     string
	DatabasePath  string
	ChangeLogPath string
	LockFilePath  string
	FIFOPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, pipe *pipeline.Pipeline, sched *scheduler.Scheduler) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, logger, and scheduler")
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipe:     pipe,
		sched:    sched,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the scheduler loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrStartup, "daemon", "start", "acquire instance lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrStartup, "daemon", "start", "another courier daemon instance is already running", nil)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.sched.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return services.Wrap(services.ErrStartup, "daemon", "start", "start scheduler", err)
	}

	d.running.Store(true)
	d.logger.Info("courier daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops the scheduler loop and releases the instance lock. An in-flight
// pipeline run finishes before Stop returns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("courier daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ForceTransfer flags the scheduler to run the full transfer sequence on its
// next iteration.
func (d *Daemon) ForceTransfer(via history.Trigger) {
	d.sched.RequestTransfer(via)
	d.logger.Info("transfer requested", logging.String(logging.FieldTrigger, string(via)))
}

// ForceBackup flags the scheduler to run a backup on its next iteration.
func (d *Daemon) ForceBackup(via history.Trigger) {
	d.sched.RequestBackup(via)
	d.logger.Info("backup requested", logging.String(logging.FieldTrigger, string(via)))
}

// History returns the most recent pipeline runs, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]*history.Run, error) {
	if d.store == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.store.RecentRuns(ctx, limit)
}

// Changes returns the most recent change events, newest first.
func (d *Daemon) Changes(ctx context.Context, limit int) ([]changelog.Record, error) {
	if d.store == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.store.RecentEvents(ctx, limit)
}

// TestAlert sends a test notification using the current configuration.
func (d *Daemon) TestAlert(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Alerts.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	svc := alerts.NewService(d.cfg)
	if err := svc.Test(ctx); err != nil {
		return false, "failed to send alert", err
	}
	return true, "test alert sent", nil
}

// PruneBackups removes expired backup directories per the retention policy.
func (d *Daemon) PruneBackups(ctx context.Context) (int, error) {
	if d.pipe == nil {
		return 0, errors.New("pipeline unavailable")
	}
	return d.pipe.PruneBackups(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Scheduler:     d.sched.Status(),
		IntakeDir:     d.cfg.Paths.IntakeDir,
		PublishedDir:  d.cfg.Paths.PublishedDir,
		BackupDir:     d.cfg.Paths.BackupDir,
		DatabasePath:  d.cfg.DatabasePath(),
		ChangeLogPath: d.cfg.ChangeLogPath(),
		LockFilePath:  d.lockPath,
		FIFOPath:      d.cfg.FIFOPath(),
	}
}
