// Package changelog records one line per observed report event. The line
// format is fixed; downstream tooling greps these files.
package changelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Action identifies what happened to a report.
type Action string

const (
	ActionCreate   Action = "create"
	ActionModify   Action = "modify"
	ActionDelete   Action = "delete"
	ActionTransfer Action = "transfer"
)

// Record is one report event ready to be persisted.
type Record struct {
	Time      time.Time
	User      string
	File      string
	Action    Action
	Directory string
}

// Sink persists report events. Implementations must be safe for concurrent
// use; callers treat a failed Record as advisory and keep going.
type Sink interface {
	Record(rec Record) error
}

const lineLayout = "2006-01-02 15:04:05"

// Line renders rec in the on-disk format. Exposed so tests and the history
// view render identically.
func Line(rec Record) string {
	return fmt.Sprintf("[%s] User: %s, File: %s, Action: %s",
		rec.Time.Format(lineLayout), rec.User, rec.File, rec.Action)
}

// Log is the append-only file sink. The file is opened per write so external
// rotation never strands a handle.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog returns a file sink appending to path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the sink appends to.
func (l *Log) Path() string {
	return l.path
}

// Record appends one line for rec.
func (l *Log) Record(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create change log directory: %w", err)
	}
	handle, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open change log: %w", err)
	}
	defer handle.Close()

	if _, err := fmt.Fprintln(handle, Line(rec)); err != nil {
		return fmt.Errorf("append change log line: %w", err)
	}
	return nil
}

// Multi fans one record out to several sinks. Every sink sees the record even
// when an earlier one fails; the errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a sink writing to every non-nil sink in order.
func NewMulti(sinks ...Sink) *Multi {
	keep := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			keep = append(keep, s)
		}
	}
	return &Multi{sinks: keep}
}

// Record forwards rec to all sinks.
func (m *Multi) Record(rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
