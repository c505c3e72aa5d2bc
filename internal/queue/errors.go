package queue

import "errors"

var (
	// ErrNotFound is returned for handles that never existed or whose record expired.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a write would move a job backwards
	// or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrEmptyInput is returned when Enqueue is called without an input path.
	ErrEmptyInput = errors.New("input path is required")
)
