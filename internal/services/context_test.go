package services_test

import (
	"context"
	"testing"

	"courier/internal/services"
)

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id on fresh context")
	}

	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithOperation(ctx, "transfer")
	ctx = services.WithTrigger(ctx, "scheduled")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("run id = %q, ok = %v", id, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "transfer" {
		t.Fatalf("operation = %q, ok = %v", op, ok)
	}
	if trig, ok := services.TriggerFromContext(ctx); !ok || trig != "scheduled" {
		t.Fatalf("trigger = %q, ok = %v", trig, ok)
	}
}

func TestContextIgnoresEmptyValues(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("empty run id must not be stored")
	}
	ctx = services.WithOperation(ctx, "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("empty operation must not be stored")
	}
}
