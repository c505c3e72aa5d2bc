package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StatusUnknown is reported for handles the store does not know. It is never persisted.
const StatusUnknown Status = "unknown"

// Progress messages recorded while a job is processing.
const (
	ProgressStarting   = "Starting transcription"
	ProgressConverting = "Converting audio format"
	ProgressTranscribe = "Transcribing"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}

var transitions = map[Status]map[Status]bool{
	StatusQueued:     {StatusProcessing: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true},
}

// AllStatuses returns every persisted status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// TransitionError describes a guarded write that matched no row: the job
// either sits in a status that cannot reach to, or left from concurrently.
func TransitionError(handle string, from, to Status) error {
	if CanTransition(from, to) {
		return fmt.Errorf("%w: job %s changed while moving from %s to %s", ErrInvalidTransition, handle, from, to)
	}
	return fmt.Errorf("%w: job %s cannot move from %s to %s", ErrInvalidTransition, handle, from, to)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the outcome of a completed job.
type Result struct {
	Text                string    `json:"text"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability"`
	Duration            float64   `json:"duration"`
	Segments            []Segment `json:"segments,omitempty"`
}

// Job is one transcription request and its current state.
type Job struct {
	Handle        string
	InputPath     string
	Status        Status
	Progress      string
	WorkerID      string
	Result        *Result
	Error         string
	SubmittedAt   time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ExpiresAt     *time.Time
	LastHeartbeat *time.Time
}

// Stats counts live jobs per status.
type Stats struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
}

// Total sums every status.
func (s Stats) Total() int {
	return s.Queued + s.Processing + s.Completed + s.Failed
}

// Add records count jobs under status.
func (s *Stats) Add(status Status, count int) {
	switch status {
	case StatusQueued:
		s.Queued += count
	case StatusProcessing:
		s.Processing += count
	case StatusCompleted:
		s.Completed += count
	case StatusFailed:
		s.Failed += count
	}
}

// ByStatus returns the counts keyed by status string.
func (s Stats) ByStatus() map[string]int {
	return map[string]int{
		string(StatusQueued):     s.Queued,
		string(StatusProcessing): s.Processing,
		string(StatusCompleted):  s.Completed,
		string(StatusFailed):     s.Failed,
	}
}
