package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// UpdateProgress sets the progress message of a processing job.
func (s *Store) UpdateProgress(ctx context.Context, handle, message string) error {
	res, err := s.exec(ctx,
		`UPDATE jobs SET progress_message = ? WHERE handle = ? AND status = ?`,
		message, handle, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return s.checkGuarded(ctx, res, handle, StatusProcessing)
}

// Heartbeat refreshes last_heartbeat for a processing job.
func (s *Store) Heartbeat(ctx context.Context, handle string) error {
	res, err := s.exec(ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE handle = ? AND status = ?`,
		formatTime(s.now()), handle, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return s.checkGuarded(ctx, res, handle, StatusProcessing)
}

// Complete stores the result and moves a processing job to completed.
func (s *Store) Complete(ctx context.Context, handle string, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	now := s.now()
	res, err := s.exec(ctx, `
UPDATE jobs
SET status = ?, result_json = ?, error_message = NULL, progress_message = NULL,
    finished_at = ?, expires_at = ?
WHERE handle = ? AND status = ?`,
		StatusCompleted, string(payload), formatTime(now), formatTime(now.Add(s.retention)),
		handle, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.checkGuarded(ctx, res, handle, StatusCompleted)
}

// Fail records message and moves a processing job to failed.
func (s *Store) Fail(ctx context.Context, handle, message string) error {
	if message == "" {
		message = "unknown error"
	}
	now := s.now()
	res, err := s.exec(ctx, `
UPDATE jobs
SET status = ?, error_message = ?, progress_message = NULL, finished_at = ?, expires_at = ?
WHERE handle = ? AND status = ?`,
		StatusFailed, message, formatTime(now), formatTime(now.Add(s.retention)),
		handle, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.checkGuarded(ctx, res, handle, StatusFailed)
}

// FailStale fails processing jobs whose executor stopped heart-beating before
// cutoff. Jobs are never put back in the queue, so no job is claimed twice.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time, message string) ([]*Job, error) {
	now := s.now()
	var jobs []*Job
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
UPDATE jobs
SET status = ?, error_message = ?, progress_message = NULL, finished_at = ?, expires_at = ?
WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)
RETURNING `+jobColumns,
			StatusFailed, message, formatTime(now), formatTime(now.Add(s.retention)),
			StatusProcessing, formatTime(cutoff),
		)
		if err != nil {
			return err
		}
		jobs, err = scanJobs(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	return jobs, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// checkGuarded turns a zero-row guarded update towards to into ErrNotFound or
// ErrInvalidTransition.
func (s *Store) checkGuarded(ctx context.Context, res rowsAffecter, handle string, to Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	job, err := s.Get(ctx, handle)
	if err != nil {
		return err
	}
	return TransitionError(handle, job.Status, to)
}
