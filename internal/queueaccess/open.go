// Package queueaccess selects and opens the configured queue backend so the
// daemon and CLI share one construction path.
package queueaccess

import (
	"context"
	"fmt"

	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/queue/redisq"
)

// Open returns the queue.Backend named by cfg.Queue.Backend.
func Open(ctx context.Context, cfg *config.Config) (queue.Backend, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendSQLite, "":
		store, err := queue.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite queue: %w", err)
		}
		return store, nil
	case config.QueueBackendRedis:
		store, err := redisq.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open redis queue: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Queue.Backend)
	}
}

// Describe returns a short human label for the configured backend.
func Describe(cfg *config.Config) string {
	if cfg.Queue.Backend == config.QueueBackendRedis {
		return "redis " + cfg.Queue.RedisURL
	}
	return "sqlite " + cfg.QueueDBPath()
}
