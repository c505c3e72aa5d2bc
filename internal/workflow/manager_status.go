package workflow

import (
	"context"

	"scribe/internal/logging"
	"scribe/internal/queue"
)

// ExecutorStatus describes one executor.
type ExecutorStatus struct {
	ID           string `json:"id"`
	CurrentJob   string `json:"current_job,omitempty"`
	JobsDone     int    `json:"jobs_done"`
	EngineLoaded bool   `json:"engine_loaded"`
	EngineJobs   int    `json:"engine_jobs"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	LastJob    *queue.Job
	QueueStats queue.Stats
	Executors  []ExecutorStatus
	Health     []StageHealth
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, QueueStats: stats}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	for _, ex := range m.executors {
		summary.Executors = append(summary.Executors, ex.snapshot())
	}
	summary.Health = m.health(ctx)
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
