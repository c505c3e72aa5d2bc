// Package ffprobe inspects audio files with ffprobe and exposes the stream
// properties the normalizer checks after a conversion.
//
// Inspect runs ffprobe and decodes its JSON output into Result. Result.Audio
// returns the first audio stream; Stream.MatchesPCM reports whether a stream
// already has the sample layout the transcription engine expects.
package ffprobe
