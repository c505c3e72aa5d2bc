package api

import (
	"context"
	"errors"

	"scribe/internal/queue"
)

// QueueReader abstracts the queue operations needed for client queries.
type QueueReader interface {
	Get(ctx context.Context, handle string) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (queue.Stats, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// QueueService exposes queue queries returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// Describe returns the client view of handle. found is false for unknown and
// expired handles, which render with status "unknown".
func (s *QueueService) Describe(ctx context.Context, handle string) (JobResponse, bool, error) {
	if s == nil || s.store == nil || handle == "" {
		return UnknownJob(handle), false, nil
	}
	job, err := s.store.Get(ctx, handle)
	if errors.Is(err, queue.ErrNotFound) {
		return UnknownJob(handle), false, nil
	}
	if err != nil {
		return JobResponse{}, false, err
	}
	return FromJob(job), true, nil
}

// List returns jobs filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]JobSummary, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns job counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return stats.ByStatus(), nil
}

// Prune deletes expired terminal records now instead of waiting for the
// daemon's purge tick.
func (s *QueueService) Prune(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.PurgeExpired(ctx)
}
