package workflow

import (
	"context"
	"errors"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

func (m *Manager) failJob(ctx context.Context, job *queue.Job, jobErr error, logger *slog.Logger) {
	message := services.FailureMessage(jobErr)

	eventType := "job_failed"
	hint := "inspect the input file and engine logs"
	switch {
	case errors.Is(jobErr, services.ErrMissingInput):
		eventType = "input_missing"
		hint = "the upload was removed before processing"
	case errors.Is(jobErr, services.ErrTimeout):
		eventType = "job_timeout"
		hint = "raise workers.job_timeout or use a smaller model"
	case errors.Is(jobErr, services.ErrConfiguration):
		hint = "run scribe deps to check the python environment"
	}
	logging.ErrorWithContext(logger, "job failed", eventType,
		logging.Error(jobErr),
		logging.String(logging.FieldErrorHint, hint),
	)

	m.removeFile(job.InputPath, "input audio", logger)

	if err := m.store.Fail(ctx, job.Handle, message); err != nil {
		logging.ErrorWithContext(logger, "failed to record job failure", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue backend; the job may have been failed as stale"),
		)
	}
	m.setLastError(jobErr)
	job.Status = queue.StatusFailed
	job.Error = message
	m.setLastJob(job)
}
