// Package normalize converts uploaded audio into the mono 16 kHz signed
// 16-bit PCM WAV the transcription engine reads, using ffmpeg.
//
// Outputs are written to <work_dir>/<handle>.wav so concurrent jobs never
// share a temp path. Any failure yields a *ConversionError and removes the
// partial output; callers are expected to fall back to the original file.
package normalize
