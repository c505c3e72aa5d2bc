package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"REDIS_URL", "SCRIBE_CONCURRENCY", "SCRIBE_API_BIND", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t, opts...)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "scribe.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "sqlite")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestSubmitStatusAndQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(t.TempDir(), "memo.mp3")
	testsupport.WriteFile(t, src, 256)

	out, _, err := runCLI(t, env.configPath, "submit", "--json", src)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal([]byte(out), &submitted); err != nil {
		t.Fatalf("decode submit output %q: %v", out, err)
	}
	if submitted.Status != "queued" || submitted.JobID == "" {
		t.Fatalf("unexpected submit response %+v", submitted)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("submit must leave the source file: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "status", submitted.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Status:   queued")

	out, _, err = runCLI(t, env.configPath, "queue", "list", "--status", "queued")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, submitted.JobID)

	out, _, err = runCLI(t, env.configPath, "queue", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, _, err = runCLI(t, env.configPath, "queue", "stats", "--json")
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	var stats map[string]int
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats[string(queue.StatusQueued)] != 1 {
		t.Fatalf("expected one queued job, got %v", stats)
	}

	out, _, err = runCLI(t, env.configPath, "queue", "prune")
	if err != nil {
		t.Fatalf("queue prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 expired job(s)")
}

func TestStatusCompletedJobPrintsTranscript(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	job := testsupport.MustEnqueue(t, store, env.cfg, "talk.wav")
	ctx := context.Background()
	if _, err := store.Dequeue(ctx, "worker-1"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := store.Complete(ctx, job.Handle, queue.Result{Text: " Hello world.", Language: "en", LanguageProbability: 0.95, Duration: 10}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "status", job.Handle)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Language: English (95.0%)")
	requireContains(t, out, "Duration: 10.0s")
	requireContains(t, out, " Hello world.")
}

func TestStatusUnknownJob(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "status", "nope")
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
	requireContains(t, out, "Status:   unknown")
}

func TestSubmitRejectsUnsupportedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteFile(t, src, 10)
	if _, _, err := runCLI(t, env.configPath, "submit", src); err == nil {
		t.Fatal("expected unsupported file to be rejected")
	}
	if _, _, err := runCLI(t, env.configPath, "submit"); err == nil {
		t.Fatal("expected usage error without a file argument")
	}
}

func TestQueueListRejectsInvalidStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "queue", "list", "--status", "paused")
	if err == nil || !strings.Contains(err.Error(), "invalid status") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, env.configPath, "deps", "--json")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	var statuses []api.DependencyStatus
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode deps: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected three dependencies, got %+v", statuses)
	}
	for _, s := range statuses {
		if !s.Available {
			t.Fatalf("expected stubbed %s to be available", s.Name)
		}
	}

	env.cfg.Normalizer.FFmpegBinary = "scribe-test-missing-ffmpeg"
	data, _ := toml.Marshal(env.cfg)
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	out, _, err = runCLI(t, env.configPath, "deps")
	if err == nil {
		t.Fatal("expected missing ffmpeg to fail deps")
	}
	requireContains(t, out, "scribe-test-missing-ffmpeg")
}
