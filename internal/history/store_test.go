package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier/internal/changelog"
	"courier/internal/history"
	"courier/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run, err := store.StartRun(ctx, history.RunTransfer, history.TriggerScheduled)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("expected a public run id")
	}
	if run.Status != history.StatusRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Fatal("expected a start timestamp")
	}
}

func TestFinishRunRecordsOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run, err := store.StartRun(ctx, history.RunTransfer, history.TriggerManual)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	update := history.RunUpdate{
		Status:             history.StatusPartial,
		Attempted:          3,
		Succeeded:          2,
		FailedFiles:        []string{"report_Sales.xml"},
		MissingDepartments: []string{"Warehouse", "Distribution"},
		BackupPath:         "/var/backups/backup_2024-03-15_01-00-00",
		ErrorMessage:       "1 of 3 transfers failed",
	}
	if err := store.FinishRun(ctx, run.RunID, update); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	fetched, err := store.RunByID(ctx, run.RunID)
	if err != nil {
		t.Fatalf("RunByID failed: %v", err)
	}
	if fetched.Status != history.StatusPartial {
		t.Fatalf("expected partial status, got %s", fetched.Status)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected a finish timestamp")
	}
	if fetched.Attempted != 3 || fetched.Succeeded != 2 || fetched.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", fetched)
	}
	if len(fetched.FailedFiles) != 1 || fetched.FailedFiles[0] != "report_Sales.xml" {
		t.Fatalf("unexpected failed files: %v", fetched.FailedFiles)
	}
	if len(fetched.MissingDepartments) != 2 {
		t.Fatalf("unexpected missing departments: %v", fetched.MissingDepartments)
	}
	if fetched.BackupPath != update.BackupPath {
		t.Fatalf("unexpected backup path: %q", fetched.BackupPath)
	}
	if fetched.Duration() <= 0 {
		t.Fatal("expected a positive duration")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.FinishRun(context.Background(), "no-such-run", history.RunUpdate{Status: history.StatusSuccess})
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.StartRun(ctx, history.RunBackup, history.TriggerSignal)
		if err != nil {
			t.Fatalf("StartRun %d failed: %v", i, err)
		}
		ids = append(ids, run.RunID)
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != ids[2] || runs[1].RunID != ids[1] {
		t.Fatalf("expected newest first, got %s then %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestLastRunFiltersByKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.LastRun(ctx, history.RunTransfer); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on an empty store, got %v", err)
	}

	transfer, err := store.StartRun(ctx, history.RunTransfer, history.TriggerScheduled)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if _, err := store.StartRun(ctx, history.RunBackup, history.TriggerScheduled); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	last, err := store.LastRun(ctx, history.RunTransfer)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last.RunID != transfer.RunID {
		t.Fatalf("expected %s, got %s", transfer.RunID, last.RunID)
	}
}

func TestChangeEventRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	observed := time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC)
	rec := changelog.Record{
		Time:      observed,
		User:      "svc_reports",
		File:      "report_Sales.xml",
		Action:    changelog.ActionCreate,
		Directory: cfg.Paths.IntakeDir,
	}
	if err := store.Record(rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := store.RecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.File != rec.File || got.User != rec.User || got.Action != rec.Action || got.Directory != rec.Directory {
		t.Fatalf("unexpected event: %+v", got)
	}
	if !got.Time.Equal(observed) {
		t.Fatalf("expected time %v, got %v", observed, got.Time)
	}
}

func TestPruneEventsHonorsCutoff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	old := changelog.Record{Time: time.Now().Add(-48 * time.Hour), User: "u", File: "old.xml", Action: changelog.ActionDelete}
	fresh := changelog.Record{Time: time.Now(), User: "u", File: "fresh.xml", Action: changelog.ActionCreate}
	for _, rec := range []changelog.Record{old, fresh} {
		if err := store.Record(rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	deleted, err := store.PruneEvents(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneEvents failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned event, got %d", deleted)
	}

	events, err := store.RecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].File != "fresh.xml" {
		t.Fatalf("expected only the fresh event, got %+v", events)
	}
}
