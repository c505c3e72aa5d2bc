// Package config loads, normalizes, and validates scribe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REDIS_URL, SCRIBE_CONCURRENCY and LOG_LEVEL. Every knob the daemon, worker
// pool and CLI need lives on Config so directories, queue backend and engine
// parameters are discovered in one pass.
package config
