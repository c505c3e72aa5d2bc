package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Start launches the executors and the maintenance loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.newEngine == nil || m.normalizer == nil {
		m.mu.Unlock()
		return errors.New("workflow engine or normalizer not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(len(m.executors) + 1)
	m.mu.Unlock()

	for _, ex := range m.executors {
		go m.runExecutor(runCtx, ex)
	}
	go m.runMaintenance(runCtx)

	m.logger.Info("workflow started",
		logging.Int("executors", len(m.executors)),
		logging.Int("max_jobs_per_engine", m.cfg.Engine.MaxJobsPerInstance),
		logging.Duration("job_timeout", m.cfg.JobTimeout()),
	)
	return nil
}

// Stop cancels processing, waits for executors to finish their current job
// and closes every engine.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	for _, ex := range m.executors {
		if err := ex.closeEngine(); err != nil {
			m.logger.Warn("engine close failed", logging.String(logging.FieldWorker, ex.id), logging.Error(err))
		}
	}
	m.logger.Info("workflow stopped")
}

func (m *Manager) runExecutor(ctx context.Context, ex *executor) {
	defer m.wg.Done()
	ctx = services.WithWorker(ctx, ex.id)
	logger := logging.WithContext(ctx, m.logger)

	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.store.Dequeue(ctx, ex.id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleDequeueError(ctx, logger, err)
			continue
		}
		m.processJob(ctx, ex, job)

		recycled, err := ex.recycleIfDue(m.cfg.Engine.MaxJobsPerInstance)
		if err != nil {
			logger.Warn("engine close failed during recycle", logging.Error(err))
		}
		if recycled {
			logger.Info("engine recycled", logging.Int("after_jobs", m.cfg.Engine.MaxJobsPerInstance))
		}
	}
}

func (m *Manager) handleDequeueError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue backend connectivity"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workers.ErrorRetryInterval) * time.Second):
	}
}
