package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"courier/internal/changelog"
	"courier/internal/fileops"
	"courier/internal/logging"
	"courier/internal/report"
	"courier/internal/scan"
	"courier/internal/services"
)

// Transfer moves every report file out of the intake directory into the
// published directory. Per-file failures are counted and the batch keeps
// going; moved files stay moved. A partial batch is the operation's own
// failure even though individual successes are preserved.
func (p *Pipeline) Transfer(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	inv, err := p.scanner.Scan(p.cfg.Paths.IntakeDir)
	if err != nil {
		return outcome, err
	}

	for _, f := range inv.Files() {
		if !report.MatchesExtension(f.Name) {
			continue
		}
		outcome.Attempted++

		if ok, err := report.HasXMLHeader(f.Path); err == nil && !ok {
			p.logger.Warn("report lacks an XML header",
				logging.String(logging.FieldFile, f.Name),
			)
		}

		dst := filepath.Join(p.cfg.Paths.PublishedDir, f.Name)
		if err := fileops.MoveFile(f.Path, dst); err != nil {
			outcome.Failed = append(outcome.Failed, f.Name)
			p.logger.Error("report transfer failed",
				logging.String(logging.FieldFile, f.Name),
				logging.Error(services.Wrap(services.ErrTransfer, "pipeline", "transfer", f.Name, err)),
			)
			continue
		}
		outcome.Succeeded++

		p.record(changelog.Record{
			Time:      time.Now(),
			User:      ownerAt(dst, f.Owner),
			File:      f.Name,
			Action:    changelog.ActionTransfer,
			Directory: p.cfg.Paths.PublishedDir,
		})
		p.logger.Info("report transferred",
			logging.String(logging.FieldFile, f.Name),
			logging.String("department", f.Department),
		)
	}

	if !outcome.Complete() {
		return outcome, services.Wrap(services.ErrTransfer, "pipeline", "transfer",
			fmt.Sprintf("%d of %d reports failed", outcome.FailedCount(), outcome.Attempted), nil)
	}
	return outcome, nil
}

// ownerAt reads the effective owner at the file's new location, falling back
// to the owner observed during the intake scan.
func ownerAt(path, fallback string) string {
	info, err := os.Stat(path)
	if err != nil {
		return fallback
	}
	return scan.OwnerName(info)
}
