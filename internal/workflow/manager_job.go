package workflow

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// processJob drives a claimed job to completed or failed. It never returns
// with the job still processing.
func (m *Manager) processJob(ctx context.Context, ex *executor, job *queue.Job) {
	ex.begin(job.Handle)
	defer ex.end()

	jobCtx := services.WithJobHandle(ctx, job.Handle)
	logger := logging.WithContext(jobCtx, m.logger)
	started := time.Now()
	logger.Info("job started",
		logging.String("input", job.InputPath),
		logging.String(logging.FieldEventType, "job_started"),
	)

	var hbWG sync.WaitGroup
	hbCtx, stopHeartbeat := context.WithCancel(jobCtx)
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.Handle)

	runCtx := jobCtx
	if timeout := m.cfg.JobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(jobCtx, timeout)
		defer cancel()
	}

	result, err := m.transcribeJob(runCtx, ex, job, logger)

	stopHeartbeat()
	hbWG.Wait()

	// Terminal writes must land even when shutdown cancelled ctx.
	writeCtx := context.WithoutCancel(jobCtx)
	if err != nil {
		m.failJob(writeCtx, job, err, logger)
	} else {
		m.completeJob(writeCtx, job, result, logger)
	}
	logger.Debug("job finished", logging.Duration("elapsed", time.Since(started)))
}

func (m *Manager) transcribeJob(ctx context.Context, ex *executor, job *queue.Job, logger *slog.Logger) (queue.Result, error) {
	if _, err := os.Stat(job.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return queue.Result{}, services.Wrap(services.ErrMissingInput, "workflow", "", "audio file not found: "+job.InputPath, nil)
		}
		return queue.Result{}, services.Wrap(services.ErrTranscription, "workflow", "stat input", job.InputPath, err)
	}

	source := job.InputPath
	converted := ""
	if m.normalizer.NeedsConversion(source) {
		m.setProgress(ctx, job.Handle, queue.ProgressConverting, logger)
		out, err := m.normalizer.Normalize(ctx, source, job.Handle)
		switch {
		case err == nil:
			source = out
			converted = out
		case ctx.Err() != nil:
			return queue.Result{}, interrupted(ctx, "convert")
		default:
			logging.WarnWithContext(logger, "audio conversion failed; transcribing original file", "conversion_fallback",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffmpeg installation and input codec"),
				logging.String(logging.FieldImpact, "engine decodes the original upload directly"),
			)
		}
	}

	m.setProgress(ctx, job.Handle, queue.ProgressTranscribe, logger)
	engine := ex.acquireEngine(m.newEngine)
	transcript, err := engine.Transcribe(ctx, source)

	if converted != "" {
		m.removeFile(converted, "converted audio", logger)
	}

	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, services.ErrTimeout) {
			return queue.Result{}, interrupted(ctx, "transcribe")
		}
		if !services.IsFatal(err) {
			err = services.Wrap(services.ErrTranscription, "workflow", "transcribe", "", err)
		}
		return queue.Result{}, err
	}

	segments := make([]queue.Segment, len(transcript.Segments))
	for i, seg := range transcript.Segments {
		segments[i] = queue.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	return queue.Result{
		Text:                transcript.Text(),
		Language:            transcript.Language,
		LanguageProbability: transcript.LanguageProbability,
		Duration:            transcript.Duration,
		Segments:            segments,
	}, nil
}

func (m *Manager) completeJob(ctx context.Context, job *queue.Job, result queue.Result, logger *slog.Logger) {
	m.removeFile(job.InputPath, "input audio", logger)
	err := m.store.Complete(ctx, job.Handle, result)
	if err != nil && !errors.Is(err, queue.ErrInvalidTransition) && !errors.Is(err, queue.ErrNotFound) {
		logger.Warn("retrying completed job write", logging.Error(err))
		err = m.store.Complete(ctx, job.Handle, result)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record completed job", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue backend; the job may have been failed as stale"),
		)
		// The input is already removed, so the job cannot run again.
		m.failJob(ctx, job, services.Wrap(services.ErrTranscription, "workflow", "record result", "", err), logger)
		return
	}
	job.Status = queue.StatusCompleted
	job.Result = &result
	m.setLastJob(job)
	logger.Info("job completed",
		logging.String("language", result.Language),
		logging.Float64("duration_seconds", result.Duration),
		logging.Int("text_length", len(result.Text)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
}

func (m *Manager) setProgress(ctx context.Context, handle, message string, logger *slog.Logger) {
	if err := m.store.UpdateProgress(ctx, handle, message); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("progress update failed", logging.String("progress", message), logging.Error(err))
	}
}

// removeFile deletes path if present. Failures are logged and never change
// the job outcome.
func (m *Manager) removeFile(path, what string, logger *slog.Logger) {
	removed, err := fileutil.RemoveIfExists(path)
	if err != nil {
		logging.WarnWithContext(logger, "failed to remove "+what, "cleanup_failed",
			logging.String("path", path),
			logging.Error(services.Wrap(services.ErrCleanup, "workflow", "remove", what, err)),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "file remains on disk"),
		)
		return
	}
	if removed {
		logger.Debug("removed "+what, logging.String("path", path))
	}
}

func interrupted(ctx context.Context, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "workflow", op, "job exceeded its time limit", ctx.Err())
	}
	return services.Wrap(services.ErrTranscription, "workflow", op, "worker shut down before completion", ctx.Err())
}
