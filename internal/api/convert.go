package api

import (
	"time"

	"scribe/internal/deps"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

// FromJob converts a queue record to the client job view. Result fields are
// only populated once the job has completed.
func FromJob(job *queue.Job) JobResponse {
	if job == nil {
		return UnknownJob("")
	}
	resp := JobResponse{
		JobID:  job.Handle,
		Status: string(job.Status),
	}
	switch job.Status {
	case queue.StatusProcessing:
		resp.Progress = job.Progress
	case queue.StatusCompleted:
		if r := job.Result; r != nil {
			text := r.Text
			duration := r.Duration
			probability := r.LanguageProbability
			resp.Text = &text
			resp.Language = r.Language
			resp.Duration = &duration
			resp.LanguageProbability = &probability
		}
	case queue.StatusFailed:
		resp.Error = job.Error
	}
	return resp
}

// UnknownJob renders a handle the store does not know or has already expired.
func UnknownJob(handle string) JobResponse {
	return JobResponse{JobID: handle, Status: string(queue.StatusUnknown)}
}

// FromJobSummary converts a queue record to a listing row.
func FromJobSummary(job *queue.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	row := JobSummary{
		JobID:       job.Handle,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Worker:      job.WorkerID,
		InputPath:   job.InputPath,
		Error:       job.Error,
		SubmittedAt: formatTime(&job.SubmittedAt),
		FinishedAt:  formatTime(job.FinishedAt),
		ExpiresAt:   formatTime(job.ExpiresAt),
	}
	if job.Result != nil {
		row.Language = job.Result.Language
	}
	return row
}

// FromJobs converts a slice of queue records to listing rows.
func FromJobs(jobs []*queue.Job) []JobSummary {
	out := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJobSummary(job))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics into the transport shape.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:   summary.Running,
		Queue:     summary.QueueStats.ByStatus(),
		LastError: summary.LastError,
		Executors: make([]ExecutorStatus, 0, len(summary.Executors)),
		Health:    make([]StageHealth, 0, len(summary.Health)),
	}
	if summary.LastJob != nil {
		row := FromJobSummary(summary.LastJob)
		status.LastJob = &row
	}
	for _, ex := range summary.Executors {
		status.Executors = append(status.Executors, ExecutorStatus(ex))
	}
	for _, h := range summary.Health {
		status.Health = append(status.Health, StageHealth(h))
	}
	return status
}

// FromDependencies converts dependency checks into the transport shape.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
