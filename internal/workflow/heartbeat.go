package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// staleMessage is recorded on jobs whose executor stopped heart-beating.
const staleMessage = services.FailurePrefix + "worker stopped responding"

// HeartbeatMonitor stamps liveness on processing jobs and fails the ones
// whose executor went silent.
type HeartbeatMonitor struct {
	store    queue.Backend
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store queue.Backend, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// FailStaleJobs fails processing jobs whose last heartbeat is older than the
// timeout and returns them so their inputs can be removed.
func (h *HeartbeatMonitor) FailStaleJobs(ctx context.Context) ([]*queue.Job, error) {
	if h.timeout <= 0 {
		return nil, nil
	}
	cutoff := h.now().Add(-h.timeout)
	failed, err := h.store.FailStale(ctx, cutoff, staleMessage)
	if err != nil {
		return failed, err
	}
	if len(failed) > 0 {
		h.logger.Warn("failed stale jobs",
			logging.Int("count", len(failed)),
			logging.Duration("heartbeat_timeout", h.timeout),
			logging.String(logging.FieldEventType, "stale_jobs_failed"),
			logging.String(logging.FieldErrorHint, "an executor crashed or hung; check earlier log lines for the job"),
			logging.String(logging.FieldImpact, "jobs marked failed without a transcript"),
		)
	}
	return failed, nil
}

// StartLoop updates the heartbeat for handle until ctx is cancelled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, handle string) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, handle); err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					return
				case errors.Is(err, queue.ErrInvalidTransition), errors.Is(err, queue.ErrNotFound):
					logger.Debug("heartbeat skipped; job no longer processing", logging.Error(err))
					return
				default:
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
