package services_test

import (
	"context"
	"testing"

	"scribe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobHandle(ctx, "9b1d")
	ctx = services.WithWorker(ctx, "worker-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if handle, ok := services.JobHandleFromContext(ctx); !ok || handle != "9b1d" {
		t.Fatalf("unexpected handle: %v %v", handle, ok)
	}
	if worker, ok := services.WorkerFromContext(ctx); !ok || worker != "worker-1" {
		t.Fatalf("unexpected worker: %v %v", worker, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	if services.WithJobHandle(ctx, "") != ctx {
		t.Fatal("expected blank handle to return the same context")
	}
	if _, ok := services.WorkerFromContext(services.WithWorker(ctx, "")); ok {
		t.Fatal("expected no worker value")
	}
}
