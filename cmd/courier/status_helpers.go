package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"courier/internal/control"
	"courier/internal/history"
	"courier/internal/scheduler"
)

const statusTimeLayout = "2006-01-02 15:04:05"

func daemonStatusLines(resp *control.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 4)
	if resp.Running {
		lines = append(lines, renderStatusLine("Courier", statusOK, fmt.Sprintf("Running (pid %d)", resp.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Courier", statusError, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Scheduler", schedulerStateKind(resp.State), resp.State, colorize))
	if resp.Running && !resp.StartedAt.IsZero() {
		lines = append(lines, renderStatusLine("Started", statusInfo, resp.StartedAt.Local().Format(statusTimeLayout), colorize))
	}
	lines = append(lines, renderStatusLine("Next transfer", statusInfo, formatNextTransfer(resp), colorize))
	return lines
}

func schedulerStateKind(state string) statusKind {
	switch scheduler.State(state) {
	case scheduler.StateRunning:
		return statusOK
	case scheduler.StateStopping:
		return statusWarn
	default:
		return statusError
	}
}

func formatNextTransfer(resp *control.StatusResponse) string {
	if !resp.Running || resp.NextTransfer.IsZero() {
		return "not scheduled (daemon stopped)"
	}
	next := resp.NextTransfer.Local()
	until := time.Until(next).Round(time.Minute)
	if until < time.Minute {
		return next.Format(statusTimeLayout)
	}
	return fmt.Sprintf("%s (in %s)", next.Format(statusTimeLayout), until)
}

func lastRunLines(resp *control.StatusResponse, colorize bool) []string {
	if strings.TrimSpace(resp.LastRunID) == "" {
		return []string{statusIndent + "No runs recorded"}
	}
	lines := make([]string, 0, 4)
	lines = append(lines, renderStatusLine("Run", statusInfo, fmt.Sprintf("%s (%s)", shortRunID(resp.LastRunID), resp.LastRunKind), colorize))
	summary := resp.LastRunSummary
	if summary == "" {
		summary = resp.LastRunStatus
	}
	lines = append(lines, renderStatusLine("Status", runStatusKind(resp.LastRunStatus), summary, colorize))
	if resp.LastBackupPath != "" {
		lines = append(lines, renderStatusLine("Backup", statusInfo, resp.LastBackupPath, colorize))
	}
	if resp.LastRunError != "" {
		lines = append(lines, renderStatusLine("Error", statusError, resp.LastRunError, colorize))
	}
	return lines
}

func runStatusKind(status string) statusKind {
	switch history.RunStatus(status) {
	case history.StatusSuccess:
		return statusOK
	case history.StatusPartial:
		return statusWarn
	case history.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func pathStatusLine(label, path string, colorize bool) string {
	if strings.TrimSpace(path) == "" {
		return renderStatusLine(label, statusWarn, "not configured", colorize)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return renderStatusLine(label, statusWarn, fmt.Sprintf("%s (missing)", path), colorize)
		}
		return renderStatusLine(label, statusError, fmt.Sprintf("%s (%v)", path, err), colorize)
	}
	return renderStatusLine(label, statusOK, path, colorize)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
