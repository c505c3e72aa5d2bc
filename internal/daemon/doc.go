// Package daemon coordinates the long-running scribe process.
//
// It wires configuration, the queue backend, the workflow manager and the HTTP
// gateway into a single lifecycle with flock-based locking so two daemons never
// share one state directory. Startup runs preflight checks before any executor
// claims a job; shutdown stops the gateway first so no upload is accepted after
// the worker pool has begun failing in-flight jobs.
//
// Keep orchestration logic here: transcription steps live in workflow and the
// wire types in api.
package daemon
