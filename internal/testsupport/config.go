package testsupport

import (
	"path/filepath"
	"testing"

	"courier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// All managed directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IntakeDir = filepath.Join(base, "intake")
	cfgVal.Paths.PublishedDir = filepath.Join(base, "published")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RuntimeDir = filepath.Join(base, "run")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithDepartments overrides the required department set.
func WithDepartments(departments ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reports.Departments = departments
	}
}

// WithSchedule sets the daily transfer time.
func WithSchedule(hour, minute int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.TransferHour = hour
		b.cfg.Schedule.TransferMinute = minute
	}
}

// WithPollInterval sets the directory poll cadence in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.PollIntervalSeconds = seconds
	}
}

// WithNtfyTopic points alert delivery at the given topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Alerts.NtfyTopic = topic
	}
}

// WithNtfyServer points alert delivery at the given server.
func WithNtfyServer(server string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Alerts.NtfyServer = server
	}
}

// WithBackupRetention sets the backup retention window in days.
func WithBackupRetention(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.RetentionDays = days
	}
}

// WithLockedMode overrides the locked directory mode. Tests that drive the
// pipeline as an unprivileged user keep owner access with 0o700.
func WithLockedMode(mode int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Permissions.LockedMode = mode
	}
}
