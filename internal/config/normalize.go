package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	c.normalizeRetention()
	c.normalizeNormalizer()
	c.normalizeEngine()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, ""},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = f.def
		}
		expanded, err := expandPath(strings.TrimSpace(*f.value))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	if c.Queue.Backend == "" {
		c.Queue.Backend = defaultQueueBackend
	}
	if value, ok := os.LookupEnv("REDIS_URL"); ok && strings.TrimSpace(value) != "" {
		c.Queue.RedisURL = strings.TrimSpace(value)
	}
	c.Queue.RedisURL = strings.TrimSpace(c.Queue.RedisURL)
	if c.Queue.RedisURL == "" {
		c.Queue.RedisURL = defaultRedisURL
	}
	c.Queue.RedisPrefix = strings.Trim(strings.TrimSpace(c.Queue.RedisPrefix), ":")
	if c.Queue.RedisPrefix == "" {
		c.Queue.RedisPrefix = defaultRedisPrefix
	}
	return nil
}

func (c *Config) normalizeWorkers() error {
	if value, ok := os.LookupEnv("SCRIBE_CONCURRENCY"); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SCRIBE_CONCURRENCY: %w", err)
		}
		c.Workers.Count = n
	}
	if c.Workers.PollInterval <= 0 {
		c.Workers.PollInterval = defaultPollInterval
	}
	if c.Workers.HeartbeatInterval <= 0 {
		c.Workers.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workers.HeartbeatTimeout <= 0 {
		c.Workers.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workers.ErrorRetryInterval <= 0 {
		c.Workers.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workers.JobTimeout < 0 {
		c.Workers.JobTimeout = 0
	}
	return nil
}

func (c *Config) normalizeRetention() {
	if c.Retention.Hours <= 0 {
		c.Retention.Hours = defaultRetentionHours
	}
	if c.Retention.PurgeInterval <= 0 {
		c.Retention.PurgeInterval = defaultPurgeInterval
	}
}

func (c *Config) normalizeNormalizer() {
	c.Normalizer.FFmpegBinary = strings.TrimSpace(c.Normalizer.FFmpegBinary)
	if c.Normalizer.FFmpegBinary == "" {
		c.Normalizer.FFmpegBinary = defaultFFmpegBinary
	}
	c.Normalizer.FFprobeBinary = strings.TrimSpace(c.Normalizer.FFprobeBinary)
	if c.Normalizer.FFprobeBinary == "" {
		c.Normalizer.FFprobeBinary = defaultFFprobeBinary
	}
	exts := make([]string, 0, len(c.Normalizer.PassthroughExtensions))
	seen := make(map[string]struct{}, len(c.Normalizer.PassthroughExtensions))
	for _, ext := range c.Normalizer.PassthroughExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Normalizer.PassthroughExtensions = exts
}

func (c *Config) normalizeEngine() {
	c.Engine.PythonBinary = strings.TrimSpace(c.Engine.PythonBinary)
	if c.Engine.PythonBinary == "" {
		c.Engine.PythonBinary = defaultPythonBinary
	}
	c.Engine.Model = strings.TrimSpace(c.Engine.Model)
	if c.Engine.Model == "" {
		c.Engine.Model = defaultModel
	}
	c.Engine.Device = strings.ToLower(strings.TrimSpace(c.Engine.Device))
	if c.Engine.Device == "" {
		c.Engine.Device = defaultDevice
	}
	c.Engine.ComputeType = strings.ToLower(strings.TrimSpace(c.Engine.ComputeType))
	if c.Engine.ComputeType == "" {
		c.Engine.ComputeType = defaultComputeType
	}
	if c.Engine.BeamSize <= 0 {
		c.Engine.BeamSize = defaultBeamSize
	}
	if c.Engine.MinSpeechDurationMS < 0 {
		c.Engine.MinSpeechDurationMS = 0
	}
	if c.Engine.MaxJobsPerInstance < 0 {
		c.Engine.MaxJobsPerInstance = 0
	}
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("SCRIBE_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.API.Bind = value
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.MaxUploadMB <= 0 {
		c.API.MaxUploadMB = defaultMaxUploadMB
	}
	origins := c.API.CORSAllowOrigins[:0]
	for _, origin := range c.API.CORSAllowOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSAllowOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
