package workflow

import (
	"context"
	"log/slog"
	"time"

	"scribe/internal/logging"
)

// runMaintenance fails stale jobs every heartbeat interval and purges expired
// records and orphaned work files every purge interval.
func (m *Manager) runMaintenance(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldComponent, "workflow-maintenance"))

	staleEvery := time.Duration(m.cfg.Workers.HeartbeatInterval) * time.Second
	purgeEvery := time.Duration(m.cfg.Retention.PurgeInterval) * time.Second
	if staleEvery <= 0 {
		staleEvery = time.Minute
	}
	if purgeEvery <= 0 {
		purgeEvery = 10 * time.Minute
	}
	staleTicker := time.NewTicker(staleEvery)
	defer staleTicker.Stop()
	purgeTicker := time.NewTicker(purgeEvery)
	defer purgeTicker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-staleTicker.C:
			m.failStale(ctx, logger)
		case <-purgeTicker.C:
			m.purge(ctx, logger)
		}
	}
}

// Sweep runs one full maintenance pass: stale jobs, expired records and
// orphaned files.
func (m *Manager) Sweep(ctx context.Context) {
	logger := m.logger.With(logging.String(logging.FieldComponent, "workflow-maintenance"))
	m.failStale(ctx, logger)
	m.purge(ctx, logger)
}

func (m *Manager) failStale(ctx context.Context, logger *slog.Logger) {
	failed, err := m.heartbeat.FailStaleJobs(ctx)
	if err != nil && ctx.Err() == nil {
		m.setLastError(err)
		logger.Warn("stale job check failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stale_check_failed"),
			logging.String(logging.FieldErrorHint, "check queue backend connectivity"),
		)
	}
	for _, job := range failed {
		jobLogger := m.logger.With(logging.String(logging.FieldJobID, job.Handle))
		m.removeFile(job.InputPath, "input audio", jobLogger)
		m.removeFile(m.normalizer.OutputPath(job.Handle), "converted audio", jobLogger)
	}
}

func (m *Manager) purge(ctx context.Context, logger *slog.Logger) {
	removed, err := m.store.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.setLastError(err)
			logger.Warn("purge of expired jobs failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "purge_failed"),
				logging.String(logging.FieldErrorHint, "check queue backend connectivity"),
			)
		}
	} else if removed > 0 {
		logger.Info("purged expired jobs", logging.Int("count", removed))
	}

	// Converted files for live jobs are younger than the retention window.
	orphans := logging.PruneOlderThan(m.logger, time.Now().Add(-m.cfg.RetentionWindow()),
		logging.RetentionTarget{Dir: m.cfg.Paths.WorkDir, Pattern: "*.wav"},
	)
	if orphans > 0 {
		logger.Info("pruned orphaned work files", logging.Int("count", orphans))
	}
	logging.CleanupOldLogs(m.logger, m.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: m.cfg.Paths.LogDir, Pattern: "*.log", Exclude: []string{m.cfg.LogFilePath()}},
	)
}
