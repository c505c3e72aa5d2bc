package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestCheckPythonModule(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "python-good")
	bad := filepath.Join(dir, "python-bad")
	if err := os.WriteFile(good, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write good stub: %v", err)
	}
	badScript := "#!/bin/sh\necho 'Traceback (most recent call last):' >&2\necho \"ModuleNotFoundError: No module named 'faster_whisper'\" >&2\nexit 1\n"
	if err := os.WriteFile(bad, []byte(badScript), 0o755); err != nil {
		t.Fatalf("write bad stub: %v", err)
	}

	if status := CheckPythonModule(context.Background(), good, "faster_whisper"); !status.Available {
		t.Fatalf("expected module available, got %#v", status)
	}
	status := CheckPythonModule(context.Background(), bad, "faster_whisper")
	if status.Available {
		t.Fatal("expected module to be unavailable")
	}
	if status.Detail != "ModuleNotFoundError: No module named 'faster_whisper'" {
		t.Fatalf("expected last stderr line as detail, got %q", status.Detail)
	}
}
