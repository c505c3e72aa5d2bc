// Package logging assembles the structured slog loggers used by the daemon,
// worker pool and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with the job handle, executor and
// correlation id carried on a context. NewNop supplies a silent logger for
// tests and wiring code that must not fail.
package logging
