// Package whisper runs faster-whisper in a long-lived Python helper process.
//
// An Engine starts its helper lazily on the first Transcribe call and keeps
// the model loaded until Close or a cancelled call kills the process. Each
// Engine serves one call at a time; the worker pool gives every executor its
// own Engine.
//
// The helper is embedded (assets/transcribe_helper.py) and passed to the
// interpreter with -c, so nothing is written to disk. Requests and responses
// are single JSON lines on stdin and stdout.
package whisper
