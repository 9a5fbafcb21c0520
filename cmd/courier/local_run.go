package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"courier/internal/alerts"
	"courier/internal/changelog"
	"courier/internal/daemonctl"
	"courier/internal/history"
	"courier/internal/logging"
	"courier/internal/pipeline"
	"courier/internal/scan"
)

// runLocalPipeline executes one pipeline run inside the CLI process. The
// daemon must not be running: two writers racing over the same directories
// and history database would interleave.
func runLocalPipeline(cmd *cobra.Command, ctx *commandContext, kind history.RunKind) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	if running, pid, _ := daemonctl.ProcessInfo(ctx.socketPath()); running {
		return fmt.Errorf("daemon is running (pid %d); use the daemon-backed command or stop it first", pid)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	sink := changelog.NewMulti(changelog.NewLog(cfg.ChangeLogPath()), store)
	scanner := scan.NewScanner(logger)
	pipe := pipeline.New(cfg, scanner, sink, store, alerts.NewService(cfg), logger)

	var report *pipeline.Report
	var runErr error
	if kind == history.RunBackup {
		report, runErr = pipe.RunBackup(cmd.Context(), history.TriggerManual)
	} else {
		report, runErr = pipe.Run(cmd.Context(), history.TriggerManual)
	}

	stdout := cmd.OutOrStdout()
	if report != nil {
		fmt.Fprintln(stdout, report.Summary())
		if report.BackupPath != "" {
			fmt.Fprintf(stdout, "Backup written to %s\n", report.BackupPath)
		}
		if len(report.Missing) > 0 {
			fmt.Fprintf(stdout, "Missing department reports: %s\n", strings.Join(report.Missing, ", "))
		}
	}
	return runErr
}
