package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the managed directories and support locations.
type Paths struct {
	IntakeDir    string `toml:"intake_dir"`
	PublishedDir string `toml:"published_dir"`
	BackupDir    string `toml:"backup_dir"`
	LogDir       string `toml:"log_dir"`
	RuntimeDir   string `toml:"runtime_dir"`
	StateDir     string `toml:"state_dir"`
}

// Schedule contains the nightly transfer time and the change-poll cadence.
type Schedule struct {
	TransferHour        int `toml:"transfer_hour"`
	TransferMinute      int `toml:"transfer_minute"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Reports contains the required department set checked after each transfer.
type Reports struct {
	Departments []string `toml:"departments"`
}

// Permissions contains the directory modes used by lock and unlock. Values are
// plain integers so octal literals in TOML (0o777) decode directly.
type Permissions struct {
	IntakeMode    int64 `toml:"intake_mode"`
	PublishedMode int64 `toml:"published_mode"`
	LockedMode    int64 `toml:"locked_mode"`
}

// Intake returns the unlocked intake directory mode.
func (p Permissions) Intake() os.FileMode { return os.FileMode(p.IntakeMode) }

// Published returns the unlocked published directory mode.
func (p Permissions) Published() os.FileMode { return os.FileMode(p.PublishedMode) }

// Locked returns the mode applied to both directories during a pipeline run.
func (p Permissions) Locked() os.FileMode { return os.FileMode(p.LockedMode) }

// Backup contains backup rotation settings.
type Backup struct {
	RetentionDays int `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Alerts contains configuration for ntfy push notifications.
type Alerts struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	NtfyServer     string `toml:"ntfy_server"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for the daemon.
//
// Configuration sections by subsystem:
//   - Paths: managed directories plus log/runtime/state locations
//   - Schedule: nightly transfer time and change-poll interval
//   - Reports: required department labels
//   - Permissions: unlocked and locked directory modes
//   - Backup: backup directory retention
//   - Logging: log format, level, and retention
//   - Alerts: ntfy push notification settings
type Config struct {
	Paths       Paths       `toml:"paths"`
	Schedule    Schedule    `toml:"schedule"`
	Reports     Reports     `toml:"reports"`
	Permissions Permissions `toml:"permissions"`
	Backup      Backup      `toml:"backup"`
	Logging     Logging     `toml:"logging"`
	Alerts      Alerts      `toml:"alerts"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/courier/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path; when it did not, defaults are
// in effect.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeConfigFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		return resolveExplicitPath(path)
	}
	return searchConfigPaths()
}

func resolveExplicitPath(path string) (string, bool, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

// searchConfigPaths prefers the per-user config file and falls back to a
// courier.toml in the working directory. When neither exists, the default
// location is reported so error messages and `config init` agree on it.
func searchConfigPaths() (string, bool, error) {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("courier.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs. The intake and
// published directories are chmodded to their configured unlocked modes after
// creation so producer/consumer access does not depend on the process umask.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BackupDir, c.Paths.LogDir, c.Paths.RuntimeDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	managed := []struct {
		dir  string
		mode os.FileMode
	}{
		{c.Paths.IntakeDir, c.Permissions.Intake()},
		{c.Paths.PublishedDir, c.Permissions.Published()},
	}
	for _, m := range managed {
		if err := os.MkdirAll(m.dir, m.mode); err != nil {
			return fmt.Errorf("create directory %q: %w", m.dir, err)
		}
		if err := os.Chmod(m.dir, m.mode); err != nil {
			return fmt.Errorf("set mode on %q: %w", m.dir, err)
		}
	}
	return nil
}

// PIDFilePath returns the daemon PID file location.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.RuntimeDir, "courier.pid")
}

// LockFilePath returns the singleton flock location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.RuntimeDir, "courier.lock")
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "courier.sock")
}

// FIFOPath returns the message channel location.
func (c *Config) FIFOPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "courier.fifo")
}

// DatabasePath returns the history database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "courier.db")
}

// ChangeLogPath returns the append-only change log location.
func (c *Config) ChangeLogPath() string {
	return filepath.Join(c.Paths.LogDir, "changes.log")
}

// PollInterval returns the change-poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Schedule.PollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := expandHome(pathValue)
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// expandHome rewrites a leading ~ or ~/ to the user's home directory. The
// ~user form is left untouched.
func expandHome(pathValue string) (string, error) {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if pathValue == "~" {
		return home, nil
	}
	if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
		return filepath.Join(home, pathValue[2:]), nil
	}
	return pathValue, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
