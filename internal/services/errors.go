package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers. Wrap tags a failure with one of these so callers can classify
// it with errors.Is without parsing messages.
var (
	// ErrValidation marks rejected input at the ingestion boundary.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks a missing binary or unusable setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingInput marks a job whose audio file vanished before processing.
	ErrMissingInput = errors.New("missing input")
	// ErrConversion marks a failed audio normalization. The job continues with the original file.
	ErrConversion = errors.New("conversion error")
	// ErrTranscription marks an engine failure: unreadable audio, model load, helper crash.
	ErrTranscription = errors.New("transcription error")
	// ErrCleanup marks a failed file removal. Logged only.
	ErrCleanup = errors.New("cleanup warning")
	// ErrTimeout marks a job that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// FailurePrefix starts every client-visible failure message.
const FailurePrefix = "Transcription failed: "

// Wrap builds an error that carries component and operation context and is
// tagged with marker for later classification. A nil marker defaults to
// ErrTranscription.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTranscription
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err carries a marker that moves a job to failed.
// Conversion and cleanup problems are absorbed by the worker, and an
// unclassified error must be wrapped by its caller before it counts.
func IsFatal(err error) bool {
	for _, marker := range []error{ErrMissingInput, ErrTranscription, ErrTimeout, ErrConfiguration} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// FailureMessage renders the error string stored on a failed job.
func FailureMessage(err error) string {
	if err == nil {
		return FailurePrefix + "unknown error"
	}
	msg := strings.TrimSpace(err.Error())
	if strings.HasPrefix(msg, FailurePrefix) {
		return msg
	}
	if msg == "" {
		msg = "unknown error"
	}
	return FailurePrefix + msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{component, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
