// Package api defines wire-format types and the services behind the HTTP
// gateway and the CLI. It translates queue and workflow models into
// transport-friendly DTOs so clients never depend on internal types.
//
// # Key Types
//
// JobResponse: the client view of one job (status, progress, transcript or
// failure message). Unknown and expired handles render with status "unknown".
//
// SubmitResponse: acknowledgement returned when an upload is queued.
//
// DaemonStatus: daemon running state, workflow summary and dependencies.
//
// # Services
//
// Ingestor: validates media types, stores uploads under the upload directory
// with a generated name, and enqueues them. A stored file is removed again if
// the enqueue fails.
//
// QueueService: read-only job lookups, listings and counts.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the job payload clients already
// consume. Optional result fields are omitted until the job completes.
// Timestamps use RFC3339 with milliseconds.
package api
