package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "handle, input_path, status, progress_message, worker_id, result_json, error_message, submitted_at, started_at, finished_at, expires_at, last_heartbeat"

// Fixed-width UTC layout so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		handle       string
		inputPath    string
		statusStr    string
		progress     sql.NullString
		workerID     sql.NullString
		resultJSON   sql.NullString
		errorMessage sql.NullString
		submittedRaw string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		expiresRaw   sql.NullString
		heartbeatRaw sql.NullString
	)
	if err := scanner.Scan(
		&handle,
		&inputPath,
		&statusStr,
		&progress,
		&workerID,
		&resultJSON,
		&errorMessage,
		&submittedRaw,
		&startedRaw,
		&finishedRaw,
		&expiresRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		Handle:        handle,
		InputPath:     inputPath,
		Status:        Status(statusStr),
		Progress:      progress.String,
		WorkerID:      workerID.String,
		Error:         errorMessage.String,
		StartedAt:     parseNullTime(startedRaw),
		FinishedAt:    parseNullTime(finishedRaw),
		ExpiresAt:     parseNullTime(expiresRaw),
		LastHeartbeat: parseNullTime(heartbeatRaw),
	}
	if submitted, err := time.Parse(timeLayout, submittedRaw); err == nil {
		job.SubmittedAt = submitted
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", handle, err)
		}
		job.Result = &result
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
