package redisq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"scribe/internal/queue"
)

const (
	fieldHandle    = "handle"
	fieldInput     = "input_path"
	fieldStatus    = "status"
	fieldProgress  = "progress"
	fieldWorker    = "worker_id"
	fieldResult    = "result"
	fieldError     = "error"
	fieldSubmitted = "submitted_at"
	fieldStarted   = "started_at"
	fieldFinished  = "finished_at"
	fieldExpires   = "expires_at"
	fieldHeartbeat = "last_heartbeat"
	fieldSeq       = "seq"
)

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func decodeJob(fields map[string]string) (*queue.Job, error) {
	job := &queue.Job{
		Handle:        fields[fieldHandle],
		InputPath:     fields[fieldInput],
		Status:        queue.Status(fields[fieldStatus]),
		Progress:      fields[fieldProgress],
		WorkerID:      fields[fieldWorker],
		Error:         fields[fieldError],
		StartedAt:     parseMillis(fields[fieldStarted]),
		FinishedAt:    parseMillis(fields[fieldFinished]),
		ExpiresAt:     parseMillis(fields[fieldExpires]),
		LastHeartbeat: parseMillis(fields[fieldHeartbeat]),
	}
	if submitted := parseMillis(fields[fieldSubmitted]); submitted != nil {
		job.SubmittedAt = *submitted
	}
	if raw := fields[fieldResult]; raw != "" {
		var result queue.Result
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", job.Handle, err)
		}
		job.Result = &result
	}
	return job, nil
}
