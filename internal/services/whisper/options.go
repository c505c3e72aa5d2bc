package whisper

import (
	"strconv"

	"scribe/internal/config"
)

// Options configures the helper process.
type Options struct {
	PythonBinary        string
	Model               string
	Device              string
	ComputeType         string
	BeamSize            int
	VADFilter           bool
	VADThreshold        float64
	MinSpeechDurationMS int
}

// OptionsFromConfig copies the engine section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	e := cfg.Engine
	return Options{
		PythonBinary:        e.PythonBinary,
		Model:               e.Model,
		Device:              e.Device,
		ComputeType:         e.ComputeType,
		BeamSize:            e.BeamSize,
		VADFilter:           e.VADFilter,
		VADThreshold:        e.VADThreshold,
		MinSpeechDurationMS: e.MinSpeechDurationMS,
	}
}

func (o Options) args(script string) []string {
	return []string{
		"-u", "-c", script,
		"--model", o.Model,
		"--device", o.Device,
		"--compute-type", o.ComputeType,
		"--beam-size", strconv.Itoa(o.BeamSize),
		"--vad-filter", strconv.FormatBool(o.VADFilter),
		"--vad-threshold", strconv.FormatFloat(o.VADThreshold, 'f', -1, 64),
		"--min-speech-ms", strconv.Itoa(o.MinSpeechDurationMS),
	}
}
