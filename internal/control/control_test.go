package control_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"courier/internal/changelog"
	"courier/internal/config"
	"courier/internal/control"
	"courier/internal/daemon"
	"courier/internal/history"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/monitor"
	"courier/internal/pipeline"
	"courier/internal/scan"
	"courier/internal/scheduler"
	"courier/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config, store *history.Store) *daemon.Daemon {
	t.Helper()

	logger := logging.NewNop()
	scanner := scan.NewScanner(logger)
	engine := monitor.NewEngine(scanner, store, logger)
	pipe := pipeline.New(cfg, scanner, store, store, nil, logger)

	channel, err := ipc.Open(cfg.FIFOPath())
	if err != nil {
		t.Fatalf("ipc.Open: %v", err)
	}
	t.Cleanup(func() {
		channel.Close()
		channel.Remove()
	})

	clock := func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	}
	sched := scheduler.New(cfg, engine, pipe, channel, logger,
		scheduler.WithClock(clock),
		scheduler.WithQuantum(10*time.Millisecond),
	)

	d, err := daemon.New(cfg, store, logger, pipe, sched)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestControlServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLockedMode(0o700))
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := cfg.SocketPath()
	srv, err := control.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping control server test: %v", err)
		}
		t.Fatalf("control.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := control.Dial(socket)
	if err != nil {
		t.Fatalf("control.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if ping.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), ping.PID)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.State != string(scheduler.StateRunning) {
		t.Fatalf("expected running scheduler state, got %s", status.State)
	}
	if status.IntakeDir != cfg.Paths.IntakeDir || status.FIFOPath != cfg.FIFOPath() {
		t.Fatalf("unexpected paths in status: %+v", status)
	}

	run, err := store.StartRun(ctx, history.RunBackup, history.TriggerManual)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.FinishRun(ctx, run.RunID, history.RunUpdate{
		Status:     history.StatusSuccess,
		Attempted:  3,
		Succeeded:  3,
		BackupPath: "/srv/backup/backup_2024-03-15_12-00-00",
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := store.Record(changelog.Record{
		Time:      time.Now(),
		User:      "svc_reports",
		File:      "report_Sales_week.xml",
		Action:    changelog.ActionModify,
		Directory: cfg.Paths.IntakeDir,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	histResp, err := client.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(histResp.Runs) != 1 {
		t.Fatalf("expected one run, got %d", len(histResp.Runs))
	}
	got := histResp.Runs[0]
	if got.RunID != run.RunID || got.Kind != string(history.RunBackup) || got.Status != string(history.StatusSuccess) {
		t.Fatalf("unexpected run summary: %+v", got)
	}
	if got.BackupPath == "" || got.FinishedAt == nil {
		t.Fatalf("expected a finished run with backup path: %+v", got)
	}

	changesResp, err := client.Changes(10)
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if len(changesResp.Events) != 1 || changesResp.Events[0].File != "report_Sales_week.xml" {
		t.Fatalf("unexpected change events: %+v", changesResp.Events)
	}
	if changesResp.Events[0].Action != string(changelog.ActionModify) {
		t.Fatalf("unexpected action: %s", changesResp.Events[0].Action)
	}

	testsupport.WriteReport(t, cfg.Paths.IntakeDir, "report_Sales_week.xml", testsupport.XMLReport)
	transferResp, err := client.ForceTransfer()
	if err != nil {
		t.Fatalf("ForceTransfer failed: %v", err)
	}
	if !transferResp.Requested {
		t.Fatal("expected transfer request to be acknowledged")
	}
	waitFor(t, "forced transfer run", func() bool {
		runs, listErr := store.RecentRuns(ctx, 10)
		if listErr != nil {
			return false
		}
		for _, r := range runs {
			if r.Kind == history.RunTransfer {
				return true
			}
		}
		return false
	})

	backupResp, err := client.ForceBackup()
	if err != nil {
		t.Fatalf("ForceBackup failed: %v", err)
	}
	if !backupResp.Requested {
		t.Fatal("expected backup request to be acknowledged")
	}

	alertResp, err := client.TestAlert()
	if err != nil {
		t.Fatalf("TestAlert failed: %v", err)
	}
	if alertResp.Sent || alertResp.Message == "" {
		t.Fatalf("expected a not-configured alert response, got %+v", alertResp)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status after stop failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
