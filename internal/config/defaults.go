package config

const (
	defaultIntakeDir        = "~/reports/intake"
	defaultPublishedDir     = "~/reports/published"
	defaultBackupDir        = "~/reports/backups"
	defaultLogDir           = "~/.local/share/courier/logs"
	defaultRuntimeDir       = "~/.local/share/courier/run"
	defaultStateDir         = "~/.local/share/courier"
	defaultTransferHour     = 1
	defaultTransferMinute   = 0
	defaultPollSeconds      = 5
	defaultIntakeMode       = 0o777
	defaultPublishedMode    = 0o755
	defaultLockedMode       = 0o000
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
	defaultNtfyServer       = "https://ntfy.sh"
	defaultAlertTimeout     = 10
)

func defaultDepartments() []string {
	return []string{"Warehouse", "Manufacturing", "Sales", "Distribution"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IntakeDir:    defaultIntakeDir,
			PublishedDir: defaultPublishedDir,
			BackupDir:    defaultBackupDir,
			LogDir:       defaultLogDir,
			RuntimeDir:   defaultRuntimeDir,
			StateDir:     defaultStateDir,
		},
		Schedule: Schedule{
			TransferHour:        defaultTransferHour,
			TransferMinute:      defaultTransferMinute,
			PollIntervalSeconds: defaultPollSeconds,
		},
		Reports: Reports{
			Departments: defaultDepartments(),
		},
		Permissions: Permissions{
			IntakeMode:    defaultIntakeMode,
			PublishedMode: defaultPublishedMode,
			LockedMode:    defaultLockedMode,
		},
		Backup: Backup{
			RetentionDays: 0,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Alerts: Alerts{
			NtfyServer:     defaultNtfyServer,
			RequestTimeout: defaultAlertTimeout,
		},
	}
}
