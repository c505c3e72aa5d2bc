// Package preflight provides readiness checks for the directories, queue
// backend and external programs scribe depends on.
//
// The daemon runs RunAll at startup and refuses to start when a required
// check fails. The CLI "scribe deps" command and the /api/status endpoint
// reuse the individual checks for display.
package preflight
