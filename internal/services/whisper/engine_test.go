package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
)

const okHelper = `#!/bin/sh
printf '%s\n' "$@" > "$(dirname "$0")/args.txt"
echo started >> "$(dirname "$0")/starts.txt"
echo '{"ready":true,"model":"base"}'
while read -r line; do
  echo '{"language":"en","language_probability":0.97,"duration":10.0,"segments":[{"start":0,"end":1.5,"text":" Hello"},{"start":1.5,"end":3.0,"text":" world."}]}'
done
`

func writeHelper(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python3")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write helper stub: %v", err)
	}
	return path
}

func newEngine(t *testing.T, python string) *Engine {
	t.Helper()
	opts := Options{
		PythonBinary:        python,
		Model:               "base",
		Device:              "cpu",
		ComputeType:         "int8",
		BeamSize:            5,
		VADFilter:           true,
		VADThreshold:        0.5,
		MinSpeechDurationMS: 250,
	}
	engine := New(opts, logging.NewNop())
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestTranscribeStartsHelperLazily(t *testing.T) {
	python := writeHelper(t, okHelper)
	engine := newEngine(t, python)

	if engine.Loaded() {
		t.Fatal("engine must not load before first use")
	}
	got, err := engine.Transcribe(context.Background(), "/work/a.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text() != " Hello world." {
		t.Fatalf("expected exact concatenation, got %q", got.Text())
	}
	if got.Language != "en" || got.LanguageProbability != 0.97 || got.Duration != 10.0 {
		t.Fatalf("unexpected transcript metadata: %+v", got)
	}
	if len(got.Segments) != 2 || got.Segments[1].Start != 1.5 {
		t.Fatalf("unexpected segments: %+v", got.Segments)
	}
	if !engine.Loaded() {
		t.Fatal("engine should stay loaded between calls")
	}

	if _, err := engine.Transcribe(context.Background(), "/work/b.wav"); err != nil {
		t.Fatalf("second Transcribe: %v", err)
	}
	starts, err := os.ReadFile(filepath.Join(filepath.Dir(python), "starts.txt"))
	if err != nil {
		t.Fatalf("read starts: %v", err)
	}
	if n := strings.Count(string(starts), "started"); n != 1 {
		t.Fatalf("helper should start once for two calls, started %d times", n)
	}

	args, err := os.ReadFile(filepath.Join(filepath.Dir(python), "args.txt"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	for _, want := range []string{"--beam-size\n5\n", "--vad-threshold\n0.5\n", "--min-speech-ms\n250\n", "--compute-type\nint8\n"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("helper args missing %q:\n%s", want, args)
		}
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if engine.Loaded() {
		t.Fatal("engine should be unloaded after Close")
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":true}'
while read -r line; do
  echo '{"language":"en","language_probability":0.5,"duration":0,"segments":[]}'
done
`))
	got, err := engine.Transcribe(context.Background(), "/work/silence.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text() != "" || got.Duration != 0 {
		t.Fatalf("expected empty transcript, got %+v", got)
	}
}

func TestTranscribeKeepsDetectedLanguageCode(t *testing.T) {
	for _, code := range []string{"tl", "jw", "haw"} {
		engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":true}'
while read -r line; do
  echo '{"language":"`+code+`","language_probability":0.8,"duration":2,"segments":[{"start":0,"end":2,"text":" kumusta"}]}'
done
`))
		got, err := engine.Transcribe(context.Background(), "/work/greeting.wav")
		if err != nil {
			t.Fatalf("Transcribe(%s): %v", code, err)
		}
		if got.Language != code {
			t.Fatalf("expected detected code %q unchanged, got %q", code, got.Language)
		}
	}
}

func TestTranscribeReportsHelperError(t *testing.T) {
	engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":true}'
while read -r line; do
  echo '{"error":"Invalid data found when processing input"}'
done
`))
	_, err := engine.Transcribe(context.Background(), "/work/corrupt.mp3")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected helper detail in error, got %v", err)
	}
	if !engine.Loaded() {
		t.Fatal("a per-file error should not unload the model")
	}
}

func TestModelLoadFailure(t *testing.T) {
	engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":false,"error":"load model: no such model"}'
exit 1
`))
	_, err := engine.Transcribe(context.Background(), "/work/a.wav")
	if !errors.Is(err, services.ErrTranscription) || !strings.Contains(err.Error(), "no such model") {
		t.Fatalf("expected model load error, got %v", err)
	}
	if engine.Loaded() {
		t.Fatal("engine must not report loaded after failed start")
	}
}

func TestHelperCrashIncludesStderr(t *testing.T) {
	engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":true}'
read -r line
echo 'Segmentation fault in ctranslate2' >&2
exit 139
`))
	_, err := engine.Transcribe(context.Background(), "/work/a.wav")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ctranslate2") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	if engine.Loaded() {
		t.Fatal("crashed helper must be discarded")
	}
}

func TestTranscribeDeadlineKillsHelper(t *testing.T) {
	engine := newEngine(t, writeHelper(t, `#!/bin/sh
echo '{"ready":true}'
read -r line
exec sleep 30
`))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := engine.Transcribe(ctx, "/work/long.wav")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("deadline did not interrupt the helper")
	}
	if engine.Loaded() {
		t.Fatal("helper should be killed after deadline")
	}
}

func TestMissingInterpreter(t *testing.T) {
	engine := newEngine(t, filepath.Join(t.TempDir(), "no-python"))
	_, err := engine.Transcribe(context.Background(), "/work/a.wav")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscriptTextKeepsSpacing(t *testing.T) {
	tr := Transcript{Segments: []Segment{{Text: " One."}, {Text: ""}, {Text: " Two. "}}}
	if tr.Text() != " One. Two. " {
		t.Fatalf("unexpected text %q", tr.Text())
	}
}
