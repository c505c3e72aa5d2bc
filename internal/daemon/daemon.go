package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/logging"
	"scribe/internal/preflight"
	"scribe/internal/queue"
	"scribe/internal/queueaccess"
	"scribe/internal/workflow"
)

// Daemon coordinates the gateway and worker pool and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    queue.Backend
	workflow *workflow.Manager
	ingestor *api.Ingestor
	queueSvc *api.QueueService
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc

	stateMu   sync.RWMutex
	startedAt time.Time
	deps      []deps.Status
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	QueueBackend string
	LockFilePath string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store queue.Backend, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		ingestor: api.NewIngestor(cfg, store, logger),
		queueSvc: api.NewQueueService(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start runs preflight checks, acquires the daemon lock, and launches the
// worker pool and HTTP gateway.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	if err := d.preflight(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.stateMu.Lock()
	d.startedAt = time.Now()
	d.stateMu.Unlock()
	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("queue", queueaccess.Describe(d.cfg)),
		logging.String("api", d.api.addr()),
		logging.Int("workers", d.cfg.Workers.Count),
	)
	return nil
}

func (d *Daemon) preflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, d.cfg)
	results = append(results, preflight.CheckQueue(ctx, d.store, queueaccess.Describe(d.cfg)))
	if failed := preflight.Failed(results); failed != "" {
		logging.ErrorWithContext(d.logger, "preflight checks failed", "preflight_failed",
			logging.String("failed", failed),
			logging.String(logging.FieldErrorHint, "run `scribe deps` and check directory permissions"),
		)
		return fmt.Errorf("preflight failed: %s", failed)
	}

	engine := preflight.CheckEngine(ctx, d.cfg)
	if !engine.Passed {
		logging.WarnWithContext(d.logger, "faster-whisper not importable", "engine_unavailable",
			logging.String("detail", engine.Detail),
			logging.String("python", d.cfg.Engine.PythonBinary),
			logging.String(logging.FieldErrorHint, "pip install faster-whisper into the configured interpreter"),
			logging.String(logging.FieldImpact, "jobs will fail until the engine can load"),
		)
	}
	dependencies := preflight.CheckSystemDeps(ctx, d.cfg)
	d.stateMu.Lock()
	d.deps = dependencies
	d.stateMu.Unlock()
	return nil
}

// Stop stops the gateway and the worker pool and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the gateway's listen address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.stateMu.RLock()
	startedAt := d.startedAt
	dependencies := append([]deps.Status(nil), d.deps...)
	d.stateMu.RUnlock()

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    startedAt,
		QueueBackend: queueaccess.Describe(d.cfg),
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Status(ctx),
		Dependencies: dependencies,
	}
}
