package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"courier/internal/changelog"
	"courier/internal/daemon"
	"courier/internal/history"
	"courier/internal/logging"
)

const defaultListLimit = 20

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the control server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("control server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Courier", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "control"))
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.State = string(status.Scheduler.State)
	resp.StartedAt = status.Scheduler.StartedAt
	resp.NextTransfer = status.Scheduler.NextTransfer
	resp.LastRunID = status.Scheduler.LastRunID
	resp.LastRunKind = string(status.Scheduler.LastRunKind)
	resp.LastRunStatus = string(status.Scheduler.LastRunStatus)
	resp.LastRunSummary = status.Scheduler.LastRunSummary
	resp.LastRunError = status.Scheduler.LastRunError
	resp.LastBackupPath = status.Scheduler.LastBackupPath
	resp.IntakeDir = status.IntakeDir
	resp.PublishedDir = status.PublishedDir
	resp.BackupDir = status.BackupDir
	resp.DatabasePath = status.DatabasePath
	resp.ChangeLogPath = status.ChangeLogPath
	resp.LockPath = status.LockFilePath
	resp.FIFOPath = status.FIFOPath
	return nil
}

func (s *service) ForceTransfer(_ TransferRequest, resp *TransferResponse) error {
	s.log().Debug("transfer requested via control socket")
	s.daemon.ForceTransfer(history.TriggerManual)
	resp.Requested = true
	resp.Message = "transfer will run on the next scheduler iteration"
	return nil
}

func (s *service) ForceBackup(_ BackupRequest, resp *BackupResponse) error {
	s.log().Debug("backup requested via control socket")
	s.daemon.ForceBackup(history.TriggerManual)
	resp.Requested = true
	resp.Message = "backup will run on the next scheduler iteration"
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	runs, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		if run == nil {
			continue
		}
		resp.Runs = append(resp.Runs, convertRun(run))
	}
	return nil
}

func (s *service) Changes(req ChangesRequest, resp *ChangesResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	events, err := s.daemon.Changes(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Events = make([]ChangeEvent, 0, len(events))
	for _, event := range events {
		resp.Events = append(resp.Events, convertEvent(event))
	}
	return nil
}

func (s *service) TestAlert(_ TestAlertRequest, resp *TestAlertResponse) error {
	sent, message, err := s.daemon.TestAlert(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested via control socket")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via control socket")
	return nil
}

func convertRun(run *history.Run) RunSummary {
	return RunSummary{
		RunID:              run.RunID,
		Kind:               string(run.Kind),
		Trigger:            string(run.Trigger),
		Status:             string(run.Status),
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		Attempted:          run.Attempted,
		Succeeded:          run.Succeeded,
		Failed:             run.Failed,
		FailedFiles:        append([]string(nil), run.FailedFiles...),
		MissingDepartments: append([]string(nil), run.MissingDepartments...),
		BackupPath:         run.BackupPath,
		ErrorMessage:       run.ErrorMessage,
	}
}

func convertEvent(rec changelog.Record) ChangeEvent {
	return ChangeEvent{
		Time:      rec.Time,
		User:      rec.User,
		File:      rec.File,
		Action:    string(rec.Action),
		Directory: rec.Directory,
	}
}
