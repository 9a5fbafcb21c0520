// Package daemonrun assembles and runs the courier daemon process: logging,
// history storage, the change-detection engine, the pipeline, the scheduler,
// the message channel, and the control socket.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"courier/internal/alerts"
	"courier/internal/changelog"
	"courier/internal/config"
	"courier/internal/control"
	"courier/internal/daemon"
	"courier/internal/history"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/monitor"
	"courier/internal/pipeline"
	"courier/internal/scan"
	"courier/internal/scheduler"
	"courier/internal/services"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the courier daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("courier-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "courier-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return services.Wrap(services.ErrStartup, "daemon", "run", "write pid file", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	if days := cfg.Logging.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if pruned, err := store.PruneEvents(signalCtx, cutoff); err != nil {
			logger.Warn("prune change events", logging.Error(err))
		} else if pruned > 0 {
			logger.Info("old change events pruned", logging.Int64("count", pruned))
		}
	}

	sink := changelog.NewMulti(changelog.NewLog(cfg.ChangeLogPath()), store)
	scanner := scan.NewScanner(logger)
	engine := monitor.NewEngine(scanner, sink, logger)
	alertSvc := alerts.NewService(cfg)
	pipe := pipeline.New(cfg, scanner, sink, store, alertSvc, logger)

	channel, err := ipc.Open(cfg.FIFOPath())
	if err != nil {
		err = services.Wrap(services.ErrStartup, "daemon", "run", "open message channel", err)
		logger.Error("open message channel", logging.Error(err))
		return err
	}
	defer func() {
		channel.Close()
		if err := channel.Remove(); err != nil {
			logger.Warn("remove message channel", logging.Error(err))
		}
	}()

	sched := scheduler.New(cfg, engine, pipe, channel, logger)
	d, err := daemon.New(cfg, store, logger, pipe, sched)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ctrl, err := control.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}
	defer ctrl.Close()
	ctrl.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	if pruned, err := d.PruneBackups(signalCtx); err != nil {
		logger.Warn("prune backups", logging.Error(err))
	} else if pruned > 0 {
		logger.Info("expired backups pruned", logging.Int("count", pruned))
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-signalCtx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGUSR1:
					d.ForceBackup(history.TriggerSignal)
				case syscall.SIGUSR2:
					d.ForceTransfer(history.TriggerSignal)
				case syscall.SIGHUP:
					logger.Info("configuration reload is not supported, restart the daemon to apply changes")
				}
			}
		}
	}()

	<-signalCtx.Done()
	logger.Info("courier daemon shutting down")
	return nil
}

// ensureCurrentLogPointer keeps a stable path pointing at the newest per-run
// log file. Symlinks are preferred; hard links cover filesystems without them.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
