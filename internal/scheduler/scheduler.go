package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/history"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/monitor"
	"courier/internal/pipeline"
)

// State is the loop lifecycle.
type State string

const (
	StateStopped  State = "stopped"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// minuteKeyLayout identifies one wall-clock minute for scheduled-run
// deduplication.
const minuteKeyLayout = "2006-01-02 15:04"

// noteLimit caps IPC note length so every message fits one record.
const noteLimit = 256

// Scheduler drives the event loop.
type Scheduler struct {
	cfg     *config.Config
	engine  *monitor.Engine
	pipe    *pipeline.Pipeline
	channel *ipc.Channel
	logger  *slog.Logger

	triggers Triggers
	quantum  time.Duration
	now      func() time.Time

	mu            sync.Mutex
	state         State
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	startedAt     time.Time
	lastScheduled string
	lastPoll      time.Time
	lastReport    *pipeline.Report
	lastErr       error
}

// Option configures optional Scheduler behavior.
type Option func(*Scheduler)

// WithClock substitutes the wall-clock source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQuantum overrides the sleep between iterations.
func WithQuantum(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.quantum = d
		}
	}
}

// New constructs a Scheduler around the engine, pipeline, and IPC channel.
func New(cfg *config.Config, engine *monitor.Engine, pipe *pipeline.Pipeline, channel *ipc.Channel, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		engine:  engine,
		pipe:    pipe,
		channel: channel,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		quantum: time.Second,
		now:     time.Now,
		state:   StateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestTransfer asks the loop to run the full pipeline on its next
// iteration.
func (s *Scheduler) RequestTransfer(via history.Trigger) {
	s.triggers.RequestTransfer(via)
}

// RequestBackup asks the loop to run a backup on its next iteration.
func (s *Scheduler) RequestBackup(via history.Trigger) {
	s.triggers.RequestBackup(via)
}

// Start launches the loop. It fails if the loop already runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return errors.New("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.startedAt = s.now()
	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("scheduler started",
		logging.Int("transfer_hour", s.cfg.Schedule.TransferHour),
		logging.Int("transfer_minute", s.cfg.Schedule.TransferMinute),
		logging.Duration("poll_interval", s.cfg.PollInterval()),
	)
	return nil
}

// Stop requests shutdown and waits for the loop to finish its current
// iteration. In-flight pipeline work completes; it is never interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.setStopped()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		default:
		}

		s.iterate(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-time.After(s.quantum):
		}
	}
}

func (s *Scheduler) setStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
	s.logger.Info("scheduler stopped")
}

// iterate performs one loop pass: drain worker messages, fire the scheduled
// or forced transfer sequence, then poll for intake changes and a forced
// backup. Flags consumed here are cleared whether or not the run succeeds.
func (s *Scheduler) iterate(ctx context.Context) {
	s.drainChannel()

	now := s.now()

	transferVia, forced := s.triggers.consumeTransfer()
	minuteKey := now.Format(minuteKeyLayout)
	scheduled := now.Hour() == s.cfg.Schedule.TransferHour &&
		now.Minute() == s.cfg.Schedule.TransferMinute &&
		s.lastScheduledMinute() != minuteKey

	switch {
	case scheduled:
		s.setLastScheduledMinute(minuteKey)
		s.runTransferSequence(ctx, history.TriggerScheduled)
	case forced:
		s.runTransferSequence(ctx, transferVia)
	}

	backupVia, forcedBackup := s.triggers.consumeBackup()
	if forcedBackup || now.Sub(s.lastPollTime()) >= s.cfg.PollInterval() {
		s.setLastPollTime(now)
		if _, err := s.engine.Detect(s.cfg.Paths.IntakeDir); err != nil {
			s.logger.Error("intake detection failed", logging.Error(err))
			s.sendMessage(ipc.Message{Kind: ipc.KindError, Status: ipc.StatusFailed, Note: truncateNote(err.Error())})
		}
	}
	if forcedBackup {
		s.runBackupSequence(ctx, backupVia)
	}
}

// runTransferSequence delegates one full pipeline run to a worker and joins
// it before returning, so runs never interleave.
func (s *Scheduler) runTransferSequence(ctx context.Context, via history.Trigger) {
	s.logger.Info("transfer sequence starting", logging.String(logging.FieldTrigger, string(via)))
	s.sendMessage(ipc.Message{Kind: ipc.KindTransferStart})

	done := ipc.Dispatch(ctx, s.channel, ipc.KindTransferComplete, func(ctx context.Context) (ipc.Status, string) {
		report, err := s.pipe.Run(ctx, via)
		s.noteRun(report, err)
		return runStatus(report, err), runNote(report, err)
	})
	res := <-done
	if res.SendErr != nil {
		s.logger.Warn("completion message lost", logging.Error(res.SendErr))
	}
}

func (s *Scheduler) runBackupSequence(ctx context.Context, via history.Trigger) {
	s.logger.Info("backup sequence starting", logging.String(logging.FieldTrigger, string(via)))
	s.sendMessage(ipc.Message{Kind: ipc.KindBackupStart})

	done := ipc.Dispatch(ctx, s.channel, ipc.KindBackupComplete, func(ctx context.Context) (ipc.Status, string) {
		report, err := s.pipe.RunBackup(ctx, via)
		s.noteRun(report, err)
		return runStatus(report, err), runNote(report, err)
	})
	res := <-done
	if res.SendErr != nil {
		s.logger.Warn("completion message lost", logging.Error(res.SendErr))
	}
}

// drainChannel reads worker messages until the pipe is empty. A framing
// error means the record was lost; the loop keeps going.
func (s *Scheduler) drainChannel() {
	for {
		msg, err := s.channel.Receive()
		if err != nil {
			s.logger.Warn("ipc record dropped", logging.Error(err))
			return
		}
		if msg == nil {
			return
		}
		s.logger.Info("ipc message received",
			logging.String("kind", string(msg.Kind)),
			logging.String("status", string(msg.Status)),
			logging.String("note", msg.Note),
			logging.Int("sender", msg.Sender),
		)
	}
}

func (s *Scheduler) sendMessage(msg ipc.Message) {
	if err := s.channel.Send(msg); err != nil {
		s.logger.Warn("ipc message lost", logging.Error(err))
	}
}

func (s *Scheduler) noteRun(report *pipeline.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
	s.lastErr = err
}

func (s *Scheduler) lastScheduledMinute() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScheduled
}

func (s *Scheduler) setLastScheduledMinute(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScheduled = key
}

func (s *Scheduler) lastPollTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

func (s *Scheduler) setLastPollTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = t
}

func runStatus(report *pipeline.Report, err error) ipc.Status {
	switch report.Status(err) {
	case history.StatusSuccess:
		return ipc.StatusOK
	case history.StatusPartial:
		return ipc.StatusPartial
	default:
		return ipc.StatusFailed
	}
}

func runNote(report *pipeline.Report, err error) string {
	if err != nil {
		return truncateNote(err.Error())
	}
	return truncateNote(report.Summary())
}

func truncateNote(note string) string {
	if len(note) <= noteLimit {
		return note
	}
	return note[:noteLimit-3] + "..."
}
