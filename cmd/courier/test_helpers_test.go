package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

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
	"courier/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *history.Store
	daemon     *daemon.Daemon
	server     *control.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

// newCLIConfig builds a temp-dir config, points HOME at an isolated
// directory, and writes the matching config file the CLI can load.
func newCLIConfig(t *testing.T) (*config.Config, string, string) {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	configPath := filepath.Join(home, ".config", "courier", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t,
		testsupport.WithLockedMode(0o700),
		testsupport.WithDepartments("Sales"),
	)
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath, base
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg, configPath, base := newCLIConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	scanner := scan.NewScanner(logger)
	engine := monitor.NewEngine(scanner, store, logger)
	pipe := pipeline.New(cfg, scanner, store, store, nil, logger)

	channel, err := ipc.Open(cfg.FIFOPath())
	if err != nil {
		t.Fatalf("ipc.Open: %v", err)
	}
	t.Cleanup(func() {
		channel.Close()
		channel.Remove()
	})

	clock := func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	}
	sched := scheduler.New(cfg, engine, pipe, channel, logger,
		scheduler.WithClock(clock),
		scheduler.WithQuantum(10*time.Millisecond),
	)

	d, err := daemon.New(cfg, store, logger, pipe, sched)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := cfg.SocketPath()
	srv, err := control.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("control.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()

	argv := []string{"--socket", socket}
	if configPath != "" {
		argv = append(argv, "--config", configPath)
	}
	argv = append(argv, args...)

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(argv)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", duration)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
