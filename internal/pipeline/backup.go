package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"courier/internal/fileops"
	"courier/internal/logging"
	"courier/internal/services"
)

// backupStampLayout names backup directories down to the second.
const backupStampLayout = "2006-01-02_15-04-05"

// BackupPrefix starts every backup directory name.
const BackupPrefix = "backup_"

// Backup copies every file from the published directory into a fresh
// timestamped directory under the backup root. Any copied file makes the
// backup usable: partial copies degrade the count but not the result. Only a
// failed directory creation or zero copied files fail the operation.
func (p *Pipeline) Backup(ctx context.Context) (string, Outcome, error) {
	var outcome Outcome

	inv, err := p.scanner.Scan(p.cfg.Paths.PublishedDir)
	if err != nil {
		return "", outcome, err
	}

	name := BackupPrefix + time.Now().Format(backupStampLayout)
	path := filepath.Join(p.cfg.Paths.BackupDir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", outcome, services.Wrap(services.ErrTransfer, "pipeline", "backup", "create backup directory", err)
	}

	for _, f := range inv.Files() {
		outcome.Attempted++
		if err := fileops.CopyVerified(f.Path, filepath.Join(path, f.Name)); err != nil {
			outcome.Failed = append(outcome.Failed, f.Name)
			p.logger.Error("backup copy failed",
				logging.String(logging.FieldFile, f.Name),
				logging.Error(services.Wrap(services.ErrTransfer, "pipeline", "backup", f.Name, err)),
			)
			continue
		}
		outcome.Succeeded++
	}

	if outcome.Succeeded == 0 {
		return path, outcome, services.Wrap(services.ErrTransfer, "pipeline", "backup", "no files copied", nil)
	}
	if !outcome.Complete() {
		p.logger.Warn("backup is partial",
			logging.Int("succeeded", outcome.Succeeded),
			logging.Int("attempted", outcome.Attempted),
		)
	}
	p.logger.Info("backup created",
		logging.String("path", path),
		logging.Int("files", outcome.Succeeded),
	)
	return path, outcome, nil
}

// PruneBackups removes backup directories older than the configured
// retention window. A zero or negative window keeps everything.
func (p *Pipeline) PruneBackups(ctx context.Context) (int, error) {
	days := p.cfg.Backup.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	entries, err := os.ReadDir(p.cfg.Paths.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, services.Wrap(services.ErrScan, "pipeline", "prune backups", p.cfg.Paths.BackupDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), BackupPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	removed := 0
	for _, name := range names {
		stamp, err := time.ParseInLocation(backupStampLayout, strings.TrimPrefix(name, BackupPrefix), time.Local)
		if err != nil {
			continue
		}
		if !stamp.Before(cutoff) {
			continue
		}
		target := filepath.Join(p.cfg.Paths.BackupDir, name)
		if err := os.RemoveAll(target); err != nil {
			p.logger.Warn("stale backup not removed",
				logging.String("path", target),
				logging.Error(err),
			)
			continue
		}
		removed++
		p.logger.Info("stale backup removed", logging.String("path", target))
	}
	return removed, nil
}
