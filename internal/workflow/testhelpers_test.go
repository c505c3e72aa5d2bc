package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

// stubNormalizer converts by writing a small WAV into the work dir, or fails
// when err is set.
type stubNormalizer struct {
	t       *testing.T
	workDir string
	err     error

	mu    sync.Mutex
	calls []string
}

func (s *stubNormalizer) NeedsConversion(path string) bool {
	return filepath.Ext(path) != ".wav"
}

func (s *stubNormalizer) OutputPath(handle string) string {
	return filepath.Join(s.workDir, handle+".wav")
}

func (s *stubNormalizer) Normalize(_ context.Context, input, handle string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, input)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	out := s.OutputPath(handle)
	testsupport.WriteWAV(s.t, out, 100*time.Millisecond)
	return out, nil
}

// stubEngine records the paths it was asked to transcribe.
type stubEngine struct {
	transcribe func(ctx context.Context, path string) (whisper.Transcript, error)

	mu     sync.Mutex
	paths  []string
	closed bool
}

func (s *stubEngine) Transcribe(ctx context.Context, path string) (whisper.Transcript, error) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if s.transcribe != nil {
		return s.transcribe(ctx, path)
	}
	return helloTranscript(), nil
}

func (s *stubEngine) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubEngine) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func helloTranscript() whisper.Transcript {
	return whisper.Transcript{
		Segments: []whisper.Segment{
			{Start: 0, End: 4.2, Text: " Hello"},
			{Start: 4.2, End: 9.8, Text: " world."},
		},
		Language:            "en",
		LanguageProbability: 0.98,
		Duration:            10.0,
	}
}

// engineFactory hands out stub engines built by newEngine and keeps them.
type engineFactory struct {
	newEngine func() *stubEngine

	mu      sync.Mutex
	engines []*stubEngine
}

func (f *engineFactory) build() workflow.Transcriber {
	var engine *stubEngine
	if f.newEngine != nil {
		engine = f.newEngine()
	} else {
		engine = &stubEngine{}
	}
	f.mu.Lock()
	f.engines = append(f.engines, engine)
	f.mu.Unlock()
	return engine
}

func (f *engineFactory) all() []*stubEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*stubEngine(nil), f.engines...)
}

type harness struct {
	cfg        *config.Config
	store      *queue.Store
	normalizer *stubNormalizer
	factory    *engineFactory
	mgr        *workflow.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg:        cfg,
		store:      store,
		normalizer: &stubNormalizer{t: t, workDir: cfg.Paths.WorkDir},
		factory:    &engineFactory{},
	}
	h.mgr = workflow.NewManager(cfg, store, h.normalizer, h.factory.build, logging.NewNop())
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.mgr.Stop)
}

func waitForStatus(t *testing.T, store queue.Backend, handle string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		job, err := store.Get(context.Background(), handle)
		if err != nil && !errors.Is(err, queue.ErrNotFound) {
			t.Fatalf("Get(%s): %v", handle, err)
		}
		if job != nil && job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach %s (last: %+v)", handle, want, job)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err=%v", path, err)
	}
}

func workDirEntries(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var errCorrupt = services.Wrap(services.ErrTranscription, "whisper", "transcribe", "Invalid data found when processing input", nil)
