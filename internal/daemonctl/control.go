// Package daemonctl orchestrates the daemon process from the CLI: launching
// it detached, waiting for the control socket, stopping it gracefully, and
// force-killing it when it will not die.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"courier/internal/config"
	"courier/internal/control"
	"courier/internal/history"
	"courier/internal/scheduler"
)

// dialRetryInterval paces the socket polling loops while waiting for the
// daemon to come up or go away.
const dialRetryInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// ErrDaemonNotRunning indicates the control socket is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached courier daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	proc := exec.Command(executablePath, launchArgs(opts)...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	// Release detaches the child so the CLI can exit while the daemon runs on.
	return proc.Process.Release()
}

func launchArgs(opts LaunchOptions) []string {
	args := []string{"daemon"}
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	return args
}

// poll runs step every dialRetryInterval until it reports done or timeout
// elapses. The last step error wins; fallback covers the case where no step
// ever produced one.
func poll(timeout time.Duration, fallback string, step func() (done bool, err error)) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		done, err := step()
		if done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		time.Sleep(dialRetryInterval)
	}
	if lastErr == nil {
		lastErr = errors.New(fallback)
	}
	return lastErr
}

// waitForClient waits for control socket availability and returns a connected
// client.
func waitForClient(socketPath string, timeout time.Duration) (*control.Client, error) {
	var client *control.Client
	err := poll(timeout, "timeout waiting for daemon", func() (bool, error) {
		c, dialErr := control.Dial(socketPath)
		if dialErr != nil {
			return false, dialErr
		}
		client = c
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("daemon failed to start: %w", err)
	}
	return client, nil
}

// WaitForShutdown waits for the control socket to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	err := poll(timeout, "timeout waiting for shutdown", func() (bool, error) {
		client, dialErr := control.Dial(socketPath)
		if dialErr != nil {
			if isDaemonUnavailable(dialErr) {
				return true, nil
			}
			return false, dialErr
		}
		_ = client.Close()
		return false, fmt.Errorf("daemon still running")
	})
	if err != nil {
		return fmt.Errorf("daemon did not stop: %w", err)
	}
	return nil
}

// EnsureStarted launches the daemon unless one already answers on the socket.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := control.Dial(socketPath); err == nil {
		ping, pingErr := client.Ping()
		_ = client.Close()
		if pingErr == nil {
			return StartResult{State: StartStateAlreadyRunning, PID: ping.PID}, nil
		}
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := waitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	result := StartResult{State: StartStateStarted, Launched: true}
	if ping, pingErr := client.Ping(); pingErr == nil {
		result.PID = ping.PID
	}
	return result, nil
}

// ProcessInfo returns whether the control socket is reachable and the daemon
// PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := control.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	ping, err := client.Ping()
	if err != nil {
		return true, 0, err
	}
	return true, ping.PID, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock
// files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPIDFile(pidPath, fallbackPID)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := removeRuntimeFiles(pidPath, lockPath); err != nil {
		return 0, err
	}
	return pid, nil
}

// readPIDFile returns the pid recorded at path, keeping fallbackPID when the
// file is absent or holds nothing usable.
func readPIDFile(path string, fallbackPID int) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallbackPID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil || parsed <= 0 {
		return fallbackPID, nil
	}
	return parsed, nil
}

func removeRuntimeFiles(pidPath, lockPath string) error {
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return nil
}

// StopAndTerminate requests a graceful stop, signals the process to exit, and
// force-kills it if still alive after gracePeriod. The graceful stop lets an
// in-flight pipeline run finish before the scheduler loop exits.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := control.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		pid = status.PID
	}
	resp, stopErr := client.Stop()
	_ = client.Close()
	if stopErr != nil {
		return StopResult{}, stopErr
	}
	result := StopResult{PID: pid, StopAcknowledged: resp != nil && resp.Stopped}

	// The Stop RPC halts the scheduler; SIGTERM ends the process itself.
	signalProcess(pid, syscall.SIGTERM)
	if WaitForShutdown(socketPath, gracePeriod) == nil {
		return result, nil
	}

	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}
	if cfg == nil {
		return result, fmt.Errorf("daemon still alive and no configuration available to locate its pid file")
	}
	if livePID == 0 {
		livePID = pid
	}
	killedPID, killErr := ForceKillProcess(cfg.PIDFilePath(), cfg.LockFilePath(), livePID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

func signalProcess(pid int, sig syscall.Signal) {
	if pid <= 0 || pid == os.Getpid() {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(sig)
	}
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	var result RestartResult
	stop, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	switch {
	case stopErr == nil:
		result.WasRunning = true
		result.Stop = stop
	case errors.Is(stopErr, ErrDaemonNotRunning):
		// Nothing was running, proceed straight to the start.
	default:
		return RestartResult{}, stopErr
	}

	start, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	result.Start = start
	return result, nil
}

// BuildStatusSnapshot collects daemon status, falling back to configuration
// paths and the history database when the daemon is offline.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*control.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	if client, err := control.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			return resp, nil
		}
	}
	return offlineSnapshot(ctx, cfg), nil
}

// offlineSnapshot assembles what status information the filesystem and the
// history database can answer without a daemon.
func offlineSnapshot(ctx context.Context, cfg *config.Config) *control.StatusResponse {
	resp := &control.StatusResponse{
		State:         string(scheduler.StateStopped),
		IntakeDir:     cfg.Paths.IntakeDir,
		PublishedDir:  cfg.Paths.PublishedDir,
		BackupDir:     cfg.Paths.BackupDir,
		DatabasePath:  cfg.DatabasePath(),
		ChangeLogPath: cfg.ChangeLogPath(),
		LockPath:      cfg.LockFilePath(),
		FIFOPath:      cfg.FIFOPath(),
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, openErr := history.Open(cfg)
	if openErr != nil {
		return resp
	}
	defer store.Close()
	runs, listErr := store.RecentRuns(queryCtx, 1)
	if listErr != nil || len(runs) == 0 {
		return resp
	}
	last := runs[0]
	resp.LastRunID = last.RunID
	resp.LastRunKind = string(last.Kind)
	resp.LastRunStatus = string(last.Status)
	resp.LastRunError = last.ErrorMessage
	resp.LastBackupPath = last.BackupPath
	return resp
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED)
}
