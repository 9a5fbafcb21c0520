// Package monitor detects changes in a watched directory by comparing
// successive scan inventories. Each engine retains one baseline inventory per
// directory; the first look at a directory only primes that baseline.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"courier/internal/changelog"
	"courier/internal/logging"
	"courier/internal/scan"
)

// Event is one detected change.
type Event struct {
	Action changelog.Action
	File   scan.File
	Time   time.Time
}

// Engine compares successive inventories of watched directories. Safe for
// concurrent use; the baseline swap is atomic per directory.
type Engine struct {
	scanner *scan.Scanner
	sink    changelog.Sink
	logger  *slog.Logger

	mu       sync.Mutex
	baseline map[string]*scan.Inventory
}

// NewEngine returns an Engine using scanner for directory reads. Detected
// events are recorded to sink when one is given; recording is best-effort.
func NewEngine(scanner *scan.Scanner, sink changelog.Sink, logger *slog.Logger) *Engine {
	return &Engine{
		scanner:  scanner,
		sink:     sink,
		logger:   logging.NewComponentLogger(logger, "monitor"),
		baseline: make(map[string]*scan.Inventory),
	}
}

// Detect scans dir and returns the changes since the previous scan. The
// first scan of a directory primes the baseline and returns no events. A
// failed scan returns the error and leaves the baseline untouched, so the
// next successful scan reports changes relative to the last good one.
//
// Events are ordered: created and modified files in current scan order, then
// deleted files in previous scan order.
func (e *Engine) Detect(dir string) ([]Event, error) {
	current, err := e.scanner.Scan(dir)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	previous := e.baseline[dir]
	e.baseline[dir] = current
	e.mu.Unlock()

	if previous == nil {
		e.logger.Debug("primed directory baseline",
			logging.String(logging.FieldDirectory, dir),
			logging.Int("files", current.Len()),
		)
		return nil, nil
	}

	events := diff(previous, current)
	for _, ev := range events {
		e.logger.Info("change detected",
			logging.String("action", string(ev.Action)),
			logging.String(logging.FieldFile, ev.File.Name),
			logging.String(logging.FieldDirectory, dir),
			logging.String("owner", ev.File.Owner),
		)
		e.record(ev, dir)
	}
	return events, nil
}

// Baseline returns the retained inventory for dir, if the directory has been
// primed. The inventory must be treated as read-only.
func (e *Engine) Baseline(dir string) (*scan.Inventory, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inv, ok := e.baseline[dir]
	return inv, ok
}

// Forget drops the baseline for dir; the next Detect primes it again.
func (e *Engine) Forget(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.baseline, dir)
}

func (e *Engine) record(ev Event, dir string) {
	if e.sink == nil {
		return
	}
	err := e.sink.Record(changelog.Record{
		Time:      ev.Time,
		User:      ev.File.Owner,
		File:      ev.File.Name,
		Action:    ev.Action,
		Directory: dir,
	})
	if err != nil {
		e.logger.Warn("change record not persisted",
			logging.String(logging.FieldFile, ev.File.Name),
			logging.Error(err),
		)
	}
}

func diff(previous, current *scan.Inventory) []Event {
	var events []Event
	observed := current.TakenAt

	for _, f := range current.Files() {
		old, known := previous.Lookup(f.Name)
		switch {
		case !known:
			events = append(events, Event{Action: changelog.ActionCreate, File: f, Time: observed})
		case f.ModTime.After(old.ModTime):
			events = append(events, Event{Action: changelog.ActionModify, File: f, Time: observed})
		}
	}
	for _, f := range previous.Files() {
		if _, still := current.Lookup(f.Name); !still {
			events = append(events, Event{Action: changelog.ActionDelete, File: f, Time: observed})
		}
	}
	return events
}
