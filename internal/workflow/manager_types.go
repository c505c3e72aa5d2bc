package workflow

import (
	"context"

	"scribe/internal/services/whisper"
)

// Normalizer converts audio into the engine's preferred format.
type Normalizer interface {
	NeedsConversion(path string) bool
	Normalize(ctx context.Context, input, handle string) (string, error)
	OutputPath(handle string) string
}

// Transcriber is a speech recognition engine. An instance is used by one
// executor only.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (whisper.Transcript, error)
	Close() error
}

// EngineFactory creates an unloaded engine for an executor.
type EngineFactory func() Transcriber

// loadReporter is implemented by engines that know whether their model is in
// memory.
type loadReporter interface {
	Loaded() bool
}
