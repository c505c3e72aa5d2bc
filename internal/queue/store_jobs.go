package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enqueue inserts a queued job and wakes any Dequeue waiting in this process.
func (s *Store) Enqueue(ctx context.Context, inputPath string) (*Job, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, ErrEmptyInput
	}
	job := &Job{
		Handle:      uuid.NewString(),
		InputPath:   inputPath,
		Status:      StatusQueued,
		SubmittedAt: s.now().UTC(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO jobs (handle, input_path, status, submitted_at) VALUES (?, ?, ?, ?)`,
		job.Handle, job.InputPath, job.Status, formatTime(job.SubmittedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.broadcast()
	return job, nil
}

// Dequeue claims the oldest queued job. It sleeps between attempts until an
// Enqueue in this process wakes it or the poll interval elapses, which also
// picks up jobs inserted by other processes sharing the database.
func (s *Store) Dequeue(ctx context.Context, workerID string) (*Job, error) {
	for {
		wake := s.waiter()
		job, err := s.claimNext(ctx, workerID)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}
		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// claimNext flips the oldest queued row to processing in one statement, so two
// executors can never claim the same job.
func (s *Store) claimNext(ctx context.Context, workerID string) (*Job, error) {
	now := formatTime(s.now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `
UPDATE jobs
SET status = ?, worker_id = ?, progress_message = ?, started_at = ?, last_heartbeat = ?
WHERE seq = (SELECT seq FROM jobs WHERE status = ? ORDER BY seq LIMIT 1)
  AND status = ?
RETURNING `+jobColumns,
			StatusProcessing, workerID, ProgressStarting, now, now,
			StatusQueued, StatusQueued,
		)
		claimed, scanErr := scanJob(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			job = nil
			return nil
		}
		job = claimed
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Get fetches a live job by handle.
func (s *Store) Get(ctx context.Context, handle string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE handle = ? AND (expires_at IS NULL OR expires_at > ?)`,
		handle, formatTime(s.now()),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", handle, err)
	}
	return job, nil
}

// List returns live jobs in submission order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE (expires_at IS NULL OR expires_at > ?)`
	args := []any{formatTime(s.now())}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}
