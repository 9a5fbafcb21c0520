package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 or less disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := excludedPaths(targets)
	for _, target := range targets {
		pruneTarget(logger, target, cutoff, keep)
	}
}

// excludedPaths collects the absolute paths every target wants preserved.
// Exclusions apply across all targets so overlapping directories agree.
func excludedPaths(targets []RetentionTarget) map[string]struct{} {
	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			trimmed := strings.TrimSpace(path)
			if trimmed == "" {
				continue
			}
			if abs, err := filepath.Abs(trimmed); err == nil {
				keep[abs] = struct{}{}
			}
		}
	}
	return keep
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time, keep map[string]struct{}) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			matched, matchErr := filepath.Match(pattern, entry.Name())
			if matchErr != nil || !matched {
				continue
			}
		}
		path := filepath.Join(dir, entry.Name())
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}
		if _, skip := keep[path]; skip {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		removeLogFile(logger, path)
	}
}

func removeLogFile(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		if logger != nil {
			logger.Warn("log retention remove failed", String("path", path), Error(err))
		}
		return
	}
	if logger != nil {
		logger.Info("log pruned", String("path", path))
	}
}
