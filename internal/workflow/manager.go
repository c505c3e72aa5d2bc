package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
)

// Manager coordinates the executor pool and the maintenance loop.
type Manager struct {
	cfg        *config.Config
	store      queue.Backend
	normalizer Normalizer
	newEngine  EngineFactory
	logger     *slog.Logger

	heartbeat *HeartbeatMonitor

	executors []*executor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager builds a Manager with cfg.Workers.Count executors.
func NewManager(cfg *config.Config, store queue.Backend, normalizer Normalizer, newEngine EngineFactory, logger *slog.Logger) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow")
	count := max(cfg.Workers.Count, 1)
	executors := make([]*executor, count)
	for i := range executors {
		executors[i] = &executor{id: fmt.Sprintf("worker-%d", i+1)}
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		normalizer: normalizer,
		newEngine:  newEngine,
		logger:     logger,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workers.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workers.HeartbeatTimeout)*time.Second,
		),
		executors: executors,
	}
}
