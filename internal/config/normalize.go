package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReports()
	c.normalizeLogging()
	c.normalizeAlerts()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.intake_dir", &c.Paths.IntakeDir},
		{"paths.published_dir", &c.Paths.PublishedDir},
		{"paths.backup_dir", &c.Paths.BackupDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.runtime_dir", &c.Paths.RuntimeDir},
		{"paths.state_dir", &c.Paths.StateDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeReports() {
	cleaned := make([]string, 0, len(c.Reports.Departments))
	seen := make(map[string]struct{}, len(c.Reports.Departments))
	for _, dept := range c.Reports.Departments {
		trimmed := strings.TrimSpace(dept)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	c.Reports.Departments = cleaned
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeAlerts() {
	if c.Alerts.NtfyTopic == "" {
		if value, ok := os.LookupEnv("COURIER_NTFY_TOPIC"); ok {
			c.Alerts.NtfyTopic = value
		}
	}
	c.Alerts.NtfyTopic = strings.TrimSpace(c.Alerts.NtfyTopic)
	c.Alerts.NtfyServer = strings.TrimRight(strings.TrimSpace(c.Alerts.NtfyServer), "/")
	if c.Alerts.NtfyServer == "" {
		c.Alerts.NtfyServer = defaultNtfyServer
	}
	if c.Alerts.RequestTimeout <= 0 {
		c.Alerts.RequestTimeout = defaultAlertTimeout
	}
}
