package pipeline

import (
	"errors"
	"os"

	"courier/internal/logging"
	"courier/internal/services"
)

// Lock sets the no-access mode on the intake and published directories,
// signaling uploaders and viewers to stay out during a run. The signal is
// advisory and only as strong as external processes honoring it. Both
// directories are always attempted; a failure on one never skips the other.
func (p *Pipeline) Lock() error {
	mode := p.cfg.Permissions.Locked()
	return p.chmodBoth("lock directories", mode, mode)
}

// Unlock restores the operating modes: intake writable for uploaders,
// published readable for viewers. Callers run it on every exit path.
func (p *Pipeline) Unlock() error {
	return p.chmodBoth("unlock directories", p.cfg.Permissions.Intake(), p.cfg.Permissions.Published())
}

func (p *Pipeline) chmodBoth(op string, intakeMode, publishedMode os.FileMode) error {
	var errs []error
	if err := os.Chmod(p.cfg.Paths.IntakeDir, intakeMode); err != nil {
		errs = append(errs, services.Wrap(services.ErrLock, "pipeline", op, p.cfg.Paths.IntakeDir, err))
	}
	if err := os.Chmod(p.cfg.Paths.PublishedDir, publishedMode); err != nil {
		errs = append(errs, services.Wrap(services.ErrLock, "pipeline", op, p.cfg.Paths.PublishedDir, err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	p.logger.Debug(op,
		logging.String("intake_mode", intakeMode.String()),
		logging.String("published_mode", publishedMode.String()),
	)
	return nil
}
