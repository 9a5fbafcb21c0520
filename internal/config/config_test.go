package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courier/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Schedule.TransferHour != 1 || cfg.Schedule.TransferMinute != 0 {
		t.Fatalf("unexpected default schedule %d:%d", cfg.Schedule.TransferHour, cfg.Schedule.TransferMinute)
	}
	if cfg.Schedule.PollIntervalSeconds != 5 {
		t.Fatalf("unexpected default poll interval %d", cfg.Schedule.PollIntervalSeconds)
	}
	if got := len(cfg.Reports.Departments); got != 4 {
		t.Fatalf("expected 4 default departments, got %d", got)
	}
	if cfg.Permissions.Intake() != 0o777 || cfg.Permissions.Published() != 0o755 || cfg.Permissions.Locked() != 0 {
		t.Fatalf("unexpected default permissions %+v", cfg.Permissions)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
intake_dir = "` + dir + `/in"
published_dir = "` + dir + `/out"
backup_dir = "` + dir + `/bak"
log_dir = "` + dir + `/logs"
runtime_dir = "` + dir + `/run"
state_dir = "` + dir + `/state"

[schedule]
transfer_hour = 2
transfer_minute = 30
poll_interval_seconds = 10

[reports]
departments = [" Sales ", "sales", "Ops", ""]

[permissions]
intake_mode = 0o770
published_mode = 0o750
locked_mode = 0o000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Schedule.TransferHour != 2 || cfg.Schedule.TransferMinute != 30 {
		t.Fatalf("schedule not decoded: %+v", cfg.Schedule)
	}
	if cfg.Paths.IntakeDir != filepath.Join(dir, "in") {
		t.Fatalf("intake dir not expanded: %q", cfg.Paths.IntakeDir)
	}
	// Departments deduplicate case-insensitively and drop empties.
	if len(cfg.Reports.Departments) != 2 || cfg.Reports.Departments[0] != "Sales" || cfg.Reports.Departments[1] != "Ops" {
		t.Fatalf("departments not normalized: %v", cfg.Reports.Departments)
	}
	if cfg.Permissions.Intake() != 0o770 {
		t.Fatalf("octal mode not decoded: %o", cfg.Permissions.Intake())
	}
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[schedule]\ntransfer_hour = 24\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for transfer_hour out of range")
	} else if !strings.Contains(err.Error(), "transfer_hour") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsSameIntakeAndPublished(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[paths]\nintake_dir = \"" + dir + "\"\npublished_dir = \"" + dir + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for identical intake and published dirs")
	}
}

func TestEnsureDirectoriesAppliesModes(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IntakeDir = filepath.Join(base, "in")
	cfg.Paths.PublishedDir = filepath.Join(base, "out")
	cfg.Paths.BackupDir = filepath.Join(base, "bak")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.RuntimeDir = filepath.Join(base, "run")
	cfg.Paths.StateDir = filepath.Join(base, "state")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	info, err := os.Stat(cfg.Paths.IntakeDir)
	if err != nil {
		t.Fatalf("stat intake: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o777 {
		t.Fatalf("intake mode = %o, want 0o777", got)
	}
	info, err = os.Stat(cfg.Paths.PublishedDir)
	if err != nil {
		t.Fatalf("stat published: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o755 {
		t.Fatalf("published mode = %o, want 0o755", got)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	defaults := config.Default()
	if cfg.Schedule != defaults.Schedule {
		t.Fatalf("sample schedule %+v differs from defaults %+v", cfg.Schedule, defaults.Schedule)
	}
	if cfg.Permissions != defaults.Permissions {
		t.Fatalf("sample permissions %+v differ from defaults %+v", cfg.Permissions, defaults.Permissions)
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.RuntimeDir = "/run/courier"
	cfg.Paths.StateDir = "/var/lib/courier"
	cfg.Paths.LogDir = "/var/log/courier"

	if got := cfg.PIDFilePath(); got != "/run/courier/courier.pid" {
		t.Fatalf("pid path %q", got)
	}
	if got := cfg.SocketPath(); got != "/run/courier/courier.sock" {
		t.Fatalf("socket path %q", got)
	}
	if got := cfg.FIFOPath(); got != "/run/courier/courier.fifo" {
		t.Fatalf("fifo path %q", got)
	}
	if got := cfg.DatabasePath(); got != "/var/lib/courier/courier.db" {
		t.Fatalf("database path %q", got)
	}
	if got := cfg.ChangeLogPath(); got != "/var/log/courier/changes.log" {
		t.Fatalf("change log path %q", got)
	}
}
