package services_test

import (
	"errors"
	"strings"
	"testing"

	"courier/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransfer, "pipeline", "move", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pipeline", "move", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrLock, "pipeline", "lock", "chmod refused", nil)
	if !errors.Is(err, services.ErrLock) {
		t.Fatalf("expected lock marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "chmod refused") {
		t.Fatalf("expected message in error string %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", errors.New("io"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestIsStartup(t *testing.T) {
	fatal := services.Wrap(services.ErrStartup, "daemon", "pidfile", "already running", nil)
	if !services.IsStartup(fatal) {
		t.Fatalf("expected startup classification for %v", fatal)
	}
	if services.IsStartup(services.Wrap(services.ErrScan, "scan", "readdir", "denied", nil)) {
		t.Fatal("scan errors must not classify as startup-fatal")
	}
	if services.IsStartup(nil) {
		t.Fatal("nil must not classify as startup-fatal")
	}
}
