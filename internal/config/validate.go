package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateReports(); err != nil {
		return err
	}
	if err := c.validatePermissions(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	fields := map[string]string{
		"paths.intake_dir":    c.Paths.IntakeDir,
		"paths.published_dir": c.Paths.PublishedDir,
		"paths.backup_dir":    c.Paths.BackupDir,
		"paths.log_dir":       c.Paths.LogDir,
		"paths.runtime_dir":   c.Paths.RuntimeDir,
		"paths.state_dir":     c.Paths.StateDir,
	}
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	if c.Paths.IntakeDir == c.Paths.PublishedDir {
		return errors.New("paths.intake_dir and paths.published_dir must differ")
	}
	if c.Paths.BackupDir == c.Paths.PublishedDir {
		return errors.New("paths.backup_dir and paths.published_dir must differ")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.TransferHour < 0 || c.Schedule.TransferHour > 23 {
		return errors.New("schedule.transfer_hour must be between 0 and 23")
	}
	if c.Schedule.TransferMinute < 0 || c.Schedule.TransferMinute > 59 {
		return errors.New("schedule.transfer_minute must be between 0 and 59")
	}
	if c.Schedule.PollIntervalSeconds <= 0 {
		return errors.New("schedule.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateReports() error {
	if len(c.Reports.Departments) == 0 {
		return errors.New("reports.departments must include at least one department")
	}
	return nil
}

func (c *Config) validatePermissions() error {
	for name, mode := range map[string]int64{
		"permissions.intake_mode":    c.Permissions.IntakeMode,
		"permissions.published_mode": c.Permissions.PublishedMode,
	} {
		if mode <= 0 || mode > 0o7777 {
			return fmt.Errorf("%s must be a mode between 0o001 and 0o7777", name)
		}
	}
	if c.Permissions.LockedMode < 0 || c.Permissions.LockedMode > 0o7777 {
		return errors.New("permissions.locked_mode must be a mode between 0o000 and 0o7777")
	}
	if c.Permissions.LockedMode == c.Permissions.IntakeMode || c.Permissions.LockedMode == c.Permissions.PublishedMode {
		return errors.New("permissions.locked_mode must differ from the unlocked modes")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.RetentionDays < 0 {
		return errors.New("backup.retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
