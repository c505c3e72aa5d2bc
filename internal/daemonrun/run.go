// Package daemonrun assembles the daemon runtime from configuration: logger,
// queue backend, normalizer, engine factory and workflow manager.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/media/normalize"
	"scribe/internal/queueaccess"
	"scribe/internal/services/whisper"
	"scribe/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the scribe daemon and blocks until SIGINT/SIGTERM or cmdCtx is done.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if cfg.Paths.LogDir != "" {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
			logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "*.log", Exclude: []string{cfg.LogFilePath()}},
		)
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "scribe.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queueaccess.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open queue backend", logging.Error(err))
		return err
	}

	normalizer := normalize.New(cfg, logger)
	engineOpts := whisper.OptionsFromConfig(cfg)
	newEngine := func() workflow.Transcriber {
		return whisper.New(engineOpts, logger)
	}
	manager := workflow.NewManager(cfg, store, normalizer, newEngine, logger)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, dependencies, and queue access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("scribe daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("queue_backend", queueaccess.Describe(cfg)),
		logging.Bool("ffmpeg_available", binaryAvailable(cfg.Normalizer.FFmpegBinary)),
		logging.String("ffmpeg_binary", cfg.Normalizer.FFmpegBinary),
		logging.Bool("ffprobe_available", binaryAvailable(cfg.Normalizer.FFprobeBinary)),
		logging.Bool("python_available", binaryAvailable(cfg.Engine.PythonBinary)),
		logging.String("python_binary", cfg.Engine.PythonBinary),
		logging.String("model", cfg.Engine.Model),
		logging.String("device", cfg.Engine.Device),
		logging.String("compute_type", cfg.Engine.ComputeType),
		logging.Int("workers", cfg.Workers.Count),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
