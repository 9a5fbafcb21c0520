package pipeline

import (
	"context"

	"courier/internal/logging"
	"courier/internal/report"
)

// MissingDepartments scans the published directory and returns the required
// departments that have no report present. The check is advisory: it logs
// and alerts, it never blocks the pipeline. An empty result means every
// required department has published.
func (p *Pipeline) MissingDepartments(ctx context.Context) ([]string, error) {
	inv, err := p.scanner.Scan(p.cfg.Paths.PublishedDir)
	if err != nil {
		return nil, err
	}

	missing := report.Missing(inv.Departments(), p.cfg.Reports.Departments)
	for _, department := range missing {
		p.logger.Warn("required department has not published",
			logging.String("department", department),
		)
	}
	if len(missing) > 0 {
		if err := p.alerts.MissingReports(ctx, missing); err != nil {
			p.logger.Warn("missing-report alert not delivered", logging.Error(err))
		}
	} else {
		p.logger.Info("all required departments have published")
	}
	return missing, nil
}
