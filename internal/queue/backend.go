package queue

import (
	"context"
	"time"
)

// Backend is the job queue and state store the worker pool and gateway share.
// Every write is atomic per job and guarded by the expected source status.
type Backend interface {
	// Enqueue stores a new queued job for inputPath and returns it with its handle.
	Enqueue(ctx context.Context, inputPath string) (*Job, error)
	// Dequeue blocks until it has claimed the oldest queued job for workerID,
	// moving it to processing, or until ctx is done.
	Dequeue(ctx context.Context, workerID string) (*Job, error)
	// Get returns the job or ErrNotFound for unknown and expired handles.
	Get(ctx context.Context, handle string) (*Job, error)
	// UpdateProgress sets the advisory progress message of a processing job.
	UpdateProgress(ctx context.Context, handle, message string) error
	// Heartbeat records that the executor owning a processing job is alive.
	Heartbeat(ctx context.Context, handle string) error
	// Complete moves a processing job to completed with its result.
	Complete(ctx context.Context, handle string, result Result) error
	// Fail moves a processing job to failed with a human-readable message.
	Fail(ctx context.Context, handle, message string) error
	// FailStale fails processing jobs whose last heartbeat is older than cutoff
	// and returns them so the caller can release their inputs.
	FailStale(ctx context.Context, cutoff time.Time, message string) ([]*Job, error)
	// PurgeExpired deletes terminal records past their expiry and reports how many.
	PurgeExpired(ctx context.Context) (int, error)
	// List returns live jobs in submission order, optionally filtered by status.
	List(ctx context.Context, statuses ...Status) ([]*Job, error)
	// Stats counts live jobs per status.
	Stats(ctx context.Context) (Stats, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
