// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground and offers
// direct queue access for local use: submitting files, inspecting jobs,
// listing and pruning the queue, checking external dependencies, and writing
// a sample configuration. Commands other than `daemon` talk to the configured
// queue backend directly, so they work whether or not a daemon is running.
//
// Keep this package lean: add new functionality to the internal packages first,
// then surface it through a dedicated command or flag here.
package main
