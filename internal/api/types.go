package api

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitResponse acknowledges a queued upload.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse is the client view of a job.
type JobResponse struct {
	JobID               string   `json:"job_id"`
	Status              string   `json:"status"`
	Progress            string   `json:"progress,omitempty"`
	Text                *string  `json:"text,omitempty"`
	Language            string   `json:"language,omitempty"`
	Duration            *float64 `json:"duration,omitempty"`
	LanguageProbability *float64 `json:"language_probability,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// JobSummary is one row of a job listing.
type JobSummary struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Progress    string `json:"progress,omitempty"`
	Worker      string `json:"worker,omitempty"`
	InputPath   string `json:"input_path"`
	Language    string `json:"language,omitempty"`
	Error       string `json:"error,omitempty"`
	SubmittedAt string `json:"submitted_at,omitempty"`
	FinishedAt  string `json:"finished_at,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// JobListResponse wraps a listing.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries a request-level failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StageHealth reports readiness for a pipeline dependency.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// ExecutorStatus describes one worker executor.
type ExecutorStatus struct {
	ID           string `json:"id"`
	CurrentJob   string `json:"current_job,omitempty"`
	JobsDone     int    `json:"jobs_done"`
	EngineLoaded bool   `json:"engine_loaded"`
	EngineJobs   int    `json:"engine_jobs"`
}

// WorkflowStatus summarizes the worker pool.
type WorkflowStatus struct {
	Running   bool             `json:"running"`
	Queue     map[string]int   `json:"queue"`
	LastError string           `json:"last_error,omitempty"`
	LastJob   *JobSummary      `json:"last_job,omitempty"`
	Executors []ExecutorStatus `json:"executors"`
	Health    []StageHealth    `json:"health"`
}

// DependencyStatus reports availability of an external binary or module.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus is the aggregate runtime view served by /api/status.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueBackend string             `json:"queue_backend"`
	LockPath     string             `json:"lock_path"`
	StartedAt    string             `json:"started_at,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
