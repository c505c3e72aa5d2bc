package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

func TestManagerCompletesWAVWithoutConversion(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.UploadDir, "tone.wav")
	testsupport.WriteWAV(t, input, 10*time.Second)
	job, err := h.store.Enqueue(context.Background(), input)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h.start(t)
	done := waitForStatus(t, h.store, job.Handle, queue.StatusCompleted)

	if done.Result == nil {
		t.Fatal("completed job must carry a result")
	}
	if done.Result.Text != " Hello world." {
		t.Fatalf("expected exact segment concatenation, got %q", done.Result.Text)
	}
	if done.Result.Duration != 10.0 || done.Result.Language != "en" || len(done.Result.Segments) != 2 {
		t.Fatalf("unexpected result: %+v", done.Result)
	}
	if done.Error != "" || done.Progress != "" {
		t.Fatalf("completed job should have no error or progress: %+v", done)
	}
	if len(h.normalizer.calls) != 0 {
		t.Fatalf("wav input should skip conversion, got %v", h.normalizer.calls)
	}
	engines := h.factory.all()
	if len(engines) != 1 || engines[0].seen()[0] != input {
		t.Fatalf("engine should read the original wav")
	}
	assertGone(t, input)
}

func TestManagerUsesConvertedAudioAndRemovesIt(t *testing.T) {
	h := newHarness(t)
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "clip.mp3")

	h.start(t)
	waitForStatus(t, h.store, job.Handle, queue.StatusCompleted)

	converted := filepath.Join(h.cfg.Paths.WorkDir, job.Handle+".wav")
	if got := h.factory.all()[0].seen(); len(got) != 1 || got[0] != converted {
		t.Fatalf("engine should read the converted file, got %v", got)
	}
	assertGone(t, converted)
	assertGone(t, job.InputPath)
}

func TestManagerFallsBackWhenConversionFails(t *testing.T) {
	h := newHarness(t)
	h.normalizer.err = errors.New("ffmpeg: exit status 1")
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "clip.m4a")

	h.start(t)
	done := waitForStatus(t, h.store, job.Handle, queue.StatusCompleted)

	if done.Result == nil || done.Result.Text != " Hello world." {
		t.Fatalf("fallback transcription should complete, got %+v", done.Result)
	}
	if got := h.factory.all()[0].seen(); len(got) != 1 || got[0] != job.InputPath {
		t.Fatalf("engine should read the original upload after fallback, got %v", got)
	}
	if names := workDirEntries(t, h.cfg); len(names) != 0 {
		t.Fatalf("no temp file should remain, found %v", names)
	}
	assertGone(t, job.InputPath)
}

func TestManagerFailsCorruptAudioAndRemovesInput(t *testing.T) {
	h := newHarness(t)
	h.factory.newEngine = func() *stubEngine {
		return &stubEngine{transcribe: func(context.Context, string) (whisper.Transcript, error) {
			return whisper.Transcript{}, errCorrupt
		}}
	}
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "corrupt.mp3")

	h.start(t)
	failed := waitForStatus(t, h.store, job.Handle, queue.StatusFailed)

	if !strings.HasPrefix(failed.Error, services.FailurePrefix) {
		t.Fatalf("expected failure prefix, got %q", failed.Error)
	}
	if !strings.Contains(failed.Error, "Invalid data") {
		t.Fatalf("expected engine detail, got %q", failed.Error)
	}
	if failed.Result != nil {
		t.Fatal("failed job must not carry a result")
	}
	assertGone(t, job.InputPath)
	assertGone(t, filepath.Join(h.cfg.Paths.WorkDir, job.Handle+".wav"))
}

func TestManagerClassifiesUnmarkedEngineErrors(t *testing.T) {
	h := newHarness(t)
	h.factory.newEngine = func() *stubEngine {
		return &stubEngine{transcribe: func(context.Context, string) (whisper.Transcript, error) {
			return whisper.Transcript{}, errors.New("helper returned malformed json")
		}}
	}
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "garbled.wav")

	h.start(t)
	failed := waitForStatus(t, h.store, job.Handle, queue.StatusFailed)

	if !strings.Contains(failed.Error, services.ErrTranscription.Error()) {
		t.Fatalf("expected transcription marker in %q", failed.Error)
	}
	if !strings.Contains(failed.Error, "malformed json") {
		t.Fatalf("expected engine detail in %q", failed.Error)
	}
	assertGone(t, job.InputPath)
}

// flakyCompleteStore rejects every Complete so the worker must record the
// persistence error another way.
type flakyCompleteStore struct {
	queue.Backend

	mu        sync.Mutex
	completes int
}

func (s *flakyCompleteStore) Complete(context.Context, string, queue.Result) error {
	s.mu.Lock()
	s.completes++
	s.mu.Unlock()
	return errors.New("database is locked")
}

func (s *flakyCompleteStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completes
}

func TestManagerFailsJobWhenResultCannotBeStored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &flakyCompleteStore{Backend: testsupport.MustOpenStore(t, cfg)}
	factory := &engineFactory{}
	mgr := workflow.NewManager(cfg, store, &stubNormalizer{t: t, workDir: cfg.Paths.WorkDir}, factory.build, logging.NewNop())
	job := testsupport.MustEnqueue(t, store, cfg, "talk.wav")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	failed := waitForStatus(t, store, job.Handle, queue.StatusFailed)
	if !strings.HasPrefix(failed.Error, services.FailurePrefix) || !strings.Contains(failed.Error, "database is locked") {
		t.Fatalf("expected persistence error on the job, got %q", failed.Error)
	}
	if n := store.attempts(); n != 2 {
		t.Fatalf("expected one retry of the completed write, got %d attempts", n)
	}
	assertGone(t, job.InputPath)
}

func TestManagerFailsMissingInput(t *testing.T) {
	h := newHarness(t)
	job, err := h.store.Enqueue(context.Background(), filepath.Join(h.cfg.Paths.UploadDir, "vanished.mp3"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h.start(t)
	failed := waitForStatus(t, h.store, job.Handle, queue.StatusFailed)

	if !strings.Contains(failed.Error, "audio file not found") {
		t.Fatalf("expected not-found message, got %q", failed.Error)
	}
	if len(h.factory.all()) != 0 {
		t.Fatal("engine should not be created for a missing input")
	}
}

func TestSingleExecutorKeepsSecondJobQueued(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	h.factory.newEngine = func() *stubEngine {
		return &stubEngine{transcribe: func(context.Context, string) (whisper.Transcript, error) {
			entered <- struct{}{}
			<-release
			return helloTranscript(), nil
		}}
	}
	first := testsupport.MustEnqueue(t, h.store, h.cfg, "one.wav")
	second := testsupport.MustEnqueue(t, h.store, h.cfg, "two.wav")

	h.start(t)
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first job never reached the engine")
	}

	running, err := h.store.Get(context.Background(), first.Handle)
	if err != nil || running.Status != queue.StatusProcessing {
		t.Fatalf("first job should be processing: %+v (%v)", running, err)
	}
	if running.Progress != queue.ProgressTranscribe {
		t.Fatalf("expected transcribing progress, got %q", running.Progress)
	}
	waiting, err := h.store.Get(context.Background(), second.Handle)
	if err != nil || waiting.Status != queue.StatusQueued {
		t.Fatalf("second job should still be queued: %+v (%v)", waiting, err)
	}

	close(release)
	waitForStatus(t, h.store, first.Handle, queue.StatusCompleted)
	waitForStatus(t, h.store, second.Handle, queue.StatusCompleted)

	if n := len(h.factory.all()); n != 1 {
		t.Fatalf("executor should reuse its engine, created %d", n)
	}
}

func TestJobTimeoutFailsJob(t *testing.T) {
	h := newHarness(t, testsupport.WithJobTimeout(1))
	h.factory.newEngine = func() *stubEngine {
		return &stubEngine{transcribe: func(ctx context.Context, _ string) (whisper.Transcript, error) {
			<-ctx.Done()
			return whisper.Transcript{}, ctx.Err()
		}}
	}
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "long.wav")

	h.start(t)
	failed := waitForStatus(t, h.store, job.Handle, queue.StatusFailed)
	if !strings.Contains(failed.Error, "time limit") {
		t.Fatalf("expected timeout message, got %q", failed.Error)
	}
	assertGone(t, job.InputPath)
}

func TestEngineRecycledAfterLimit(t *testing.T) {
	h := newHarness(t)
	h.cfg.Engine.MaxJobsPerInstance = 2
	var handles []string
	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		handles = append(handles, testsupport.MustEnqueue(t, h.store, h.cfg, name).Handle)
	}

	h.start(t)
	for _, handle := range handles {
		waitForStatus(t, h.store, handle, queue.StatusCompleted)
	}

	engines := h.factory.all()
	if len(engines) != 2 {
		t.Fatalf("expected a fresh engine after 2 jobs, got %d engines", len(engines))
	}
	if len(engines[0].seen()) != 2 || len(engines[1].seen()) != 1 {
		t.Fatalf("unexpected job split across engines: %d / %d", len(engines[0].seen()), len(engines[1].seen()))
	}
	engines[0].mu.Lock()
	closed := engines[0].closed
	engines[0].mu.Unlock()
	if !closed {
		t.Fatal("recycled engine should be closed")
	}
}

func TestStopFailsInFlightJob(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	h.factory.newEngine = func() *stubEngine {
		return &stubEngine{transcribe: func(ctx context.Context, _ string) (whisper.Transcript, error) {
			close(entered)
			<-ctx.Done()
			return whisper.Transcript{}, ctx.Err()
		}}
	}
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "interrupted.wav")
	if err := h.mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered
	h.mgr.Stop()

	got, err := h.store.Get(context.Background(), job.Handle)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != queue.StatusFailed || !strings.Contains(got.Error, "shut down") {
		t.Fatalf("expected shutdown failure, got %+v", got)
	}
	assertGone(t, job.InputPath)
	if !h.factory.all()[0].closed {
		t.Fatal("Stop should close engines")
	}
}

func TestSweepFailsStaleJobs(t *testing.T) {
	h := newHarness(t)
	h.cfg.Workers.HeartbeatTimeout = 1
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "orphan.mp3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.store.Dequeue(ctx, "ghost"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	converted := filepath.Join(h.cfg.Paths.WorkDir, job.Handle+".wav")
	testsupport.WriteFile(t, converted, 64)

	time.Sleep(1100 * time.Millisecond)
	mgr := workflow.NewManager(h.cfg, h.store, h.normalizer, h.factory.build, logging.NewNop())
	mgr.Sweep(context.Background())

	got, err := h.store.Get(context.Background(), job.Handle)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != queue.StatusFailed || !strings.HasPrefix(got.Error, services.FailurePrefix) {
		t.Fatalf("expected stale job to fail, got %+v", got)
	}
	assertGone(t, job.InputPath)
	assertGone(t, converted)
}

func TestStatusReportsExecutors(t *testing.T) {
	h := newHarness(t, testsupport.WithWorkers(3))
	job := testsupport.MustEnqueue(t, h.store, h.cfg, "status.wav")

	summary := h.mgr.Status(context.Background())
	if summary.Running || len(summary.Executors) != 3 {
		t.Fatalf("unexpected idle summary: %+v", summary)
	}
	if summary.QueueStats.Queued != 1 {
		t.Fatalf("expected one queued job, got %+v", summary.QueueStats)
	}
	for _, check := range summary.Health {
		if !check.Ready {
			t.Fatalf("expected healthy %s: %s", check.Name, check.Detail)
		}
		if check.Name == "queue" && check.Detail != "schema v1, 1 job(s)" {
			t.Fatalf("expected database diagnostics on queue health, got %q", check.Detail)
		}
	}

	h.start(t)
	waitForStatus(t, h.store, job.Handle, queue.StatusCompleted)

	deadline := time.Now().Add(5 * time.Second)
	for {
		summary = h.mgr.Status(context.Background())
		loaded, done := 0, 0
		for _, ex := range summary.Executors {
			if ex.EngineLoaded {
				loaded++
			}
			done += ex.JobsDone
		}
		if summary.Running && summary.LastJob != nil && summary.LastJob.Handle == job.Handle && loaded == 1 && done == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("unexpected summary: %+v (loaded=%d done=%d)", summary, loaded, done)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	if err := h.mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}
}
