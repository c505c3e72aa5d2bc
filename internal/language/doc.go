// Package language renders the language codes reported by the transcription
// engine for humans. Stored results keep the engine's own codes.
package language
