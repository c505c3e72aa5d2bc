// Package services holds the small shared vocabulary used by the worker pool
// and its collaborators: context helpers that stamp job handles, executor ids
// and correlation ids for logging, and the error markers plus Wrap helper that
// decide whether a failure ends a job or is merely logged.
package services
