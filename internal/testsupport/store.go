package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustEnqueue writes a small input file into the upload directory and
// enqueues it.
func MustEnqueue(t testing.TB, backend queue.Backend, cfg *config.Config, name string) *queue.Job {
	t.Helper()
	path := filepath.Join(cfg.Paths.UploadDir, name)
	WriteFile(t, path, 512)
	job, err := backend.Enqueue(context.Background(), path)
	if err != nil {
		t.Fatalf("Enqueue(%s): %v", name, err)
	}
	return job
}
