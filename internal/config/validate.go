package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.UploadDir == c.Paths.WorkDir {
		return errors.New("paths.work_dir must differ from paths.upload_dir")
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case QueueBackendSQLite:
		return nil
	case QueueBackendRedis:
		if !strings.HasPrefix(c.Queue.RedisURL, "redis://") && !strings.HasPrefix(c.Queue.RedisURL, "rediss://") {
			return fmt.Errorf("queue.redis_url must use redis:// or rediss://, got %q", c.Queue.RedisURL)
		}
		return nil
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (want %q or %q)", c.Queue.Backend, QueueBackendSQLite, QueueBackendRedis)
	}
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count <= 0 {
		return errors.New("workers.count must be positive")
	}
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must be greater than workers.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.Device {
	case "cpu", "cuda", "auto":
	default:
		return fmt.Errorf("engine.device: unsupported value %q", c.Engine.Device)
	}
	if c.Engine.VADThreshold < 0 || c.Engine.VADThreshold > 1 {
		return errors.New("engine.vad_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
