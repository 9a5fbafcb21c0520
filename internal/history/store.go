package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"courier/internal/changelog"
	"courier/internal/config"
)

// ErrNotFound reports a run id with no stored row.
var ErrNotFound = errors.New("history: run not found")

// Store persists runs and change events backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun records the beginning of a pipeline run and returns the open row.
func (s *Store) StartRun(ctx context.Context, kind RunKind, trigger Trigger) (*Run, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_runs (run_id, kind, trigger_source, started_at, status)
         VALUES (?, ?, ?, ?, ?)`,
		runID,
		string(kind),
		string(trigger),
		started.Format(time.RFC3339Nano),
		string(StatusRunning),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.RunByID(ctx, runID)
}

// FinishRun closes an open run with its terminal facts.
func (s *Store) FinishRun(ctx context.Context, runID string, update RunUpdate) error {
	failedFiles, err := marshalList(update.FailedFiles)
	if err != nil {
		return fmt.Errorf("marshal failed files: %w", err)
	}
	missing, err := marshalList(update.MissingDepartments)
	if err != nil {
		return fmt.Errorf("marshal missing departments: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE pipeline_runs
         SET finished_at = ?, status = ?, attempted = ?, succeeded = ?, failed = ?,
             failed_files = ?, missing_departments = ?, backup_path = ?, error_message = ?
         WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(update.Status),
		update.Attempted,
		update.Succeeded,
		len(update.FailedFiles),
		failedFiles,
		missing,
		nullableString(update.BackupPath),
		nullableString(update.ErrorMessage),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// RunByID returns the run with the given public id.
func (s *Store) RunByID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM pipeline_runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM pipeline_runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the newest run of the given kind, or ErrNotFound.
func (s *Store) LastRun(ctx context.Context, kind RunKind) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM pipeline_runs WHERE kind = ? ORDER BY id DESC LIMIT 1", string(kind))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s runs", ErrNotFound, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	return run, nil
}

// Record stores one change event, satisfying changelog.Sink.
func (s *Store) Record(rec changelog.Record) error {
	_, err := s.db.Exec(
		`INSERT INTO change_events (observed_at, directory, filename, action, owner)
         VALUES (?, ?, ?, ?, ?)`,
		rec.Time.UTC().Format(time.RFC3339Nano),
		rec.Directory,
		rec.File,
		string(rec.Action),
		rec.User,
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit change events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]changelog.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at, directory, filename, action, owner
         FROM change_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []changelog.Record
	for rows.Next() {
		var (
			observedRaw string
			rec         changelog.Record
			action      string
		)
		if err := rows.Scan(&observedRaw, &rec.Directory, &rec.File, &action, &rec.User); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Action = changelog.Action(action)
		if observed, err := parseTimeString(observedRaw); err == nil {
			rec.Time = observed
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// PruneEvents deletes change events observed before cutoff and returns how
// many rows went away.
func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM change_events WHERE observed_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

const runColumns = "id, run_id, kind, trigger_source, started_at, finished_at, status, attempted, succeeded, failed, failed_files, missing_departments, backup_path, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          int64
		runID       string
		kind        string
		trigger     string
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		attempted   int
		succeeded   int
		failed      int
		failedFiles sql.NullString
		missing     sql.NullString
		backupPath  sql.NullString
		errMessage  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&kind,
		&trigger,
		&startedRaw,
		&finishedRaw,
		&status,
		&attempted,
		&succeeded,
		&failed,
		&failedFiles,
		&missing,
		&backupPath,
		&errMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		RunID:        runID,
		Kind:         RunKind(kind),
		Trigger:      Trigger(trigger),
		Status:       RunStatus(status),
		Attempted:    attempted,
		Succeeded:    succeeded,
		Failed:       failed,
		BackupPath:   backupPath.String,
		ErrorMessage: errMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	run.FailedFiles = unmarshalList(failedFiles.String)
	run.MissingDepartments = unmarshalList(missing.String)
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func marshalList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
