package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/queue"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckQueue pings the queue backend.
func CheckQueue(ctx context.Context, backend queue.Backend, describe string) Result {
	const name = "Queue"
	if backend == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", describe, err)}
	}
	return Result{Name: name, Passed: true, Detail: describe}
}

// CheckSystemDeps evaluates the external programs for the given config. Both
// the daemon and the CLI use this to avoid duplicating the requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Normalizer.FFmpegBinary,
			Description: "Converts uploads to 16 kHz mono WAV",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Normalizer.FFprobeBinary,
			Description: "Verifies converted audio",
			Optional:    !cfg.Normalizer.VerifyOutput,
		},
		{
			Name:        "Python",
			Command:     cfg.Engine.PythonBinary,
			Description: "Runs the faster-whisper helper",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckEngine confirms the configured interpreter can import faster-whisper.
func CheckEngine(ctx context.Context, cfg *config.Config) Result {
	status := deps.CheckPythonModule(ctx, cfg.Engine.PythonBinary, "faster_whisper")
	if !status.Available {
		return Result{Name: "faster-whisper", Detail: status.Detail}
	}
	return Result{Name: "faster-whisper", Passed: true, Detail: "importable by " + cfg.Engine.PythonBinary}
}
