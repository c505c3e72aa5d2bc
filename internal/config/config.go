package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Queue backends understood by the daemon.
const (
	QueueBackendSQLite = "sqlite"
	QueueBackendRedis  = "redis"
)

// Paths contains directory configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	WorkDir   string `toml:"work_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Queue selects the job queue / state store backend.
type Queue struct {
	Backend     string `toml:"backend"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// Workers configures the worker pool. Intervals are in seconds.
type Workers struct {
	Count              int `toml:"count"`
	PollInterval       int `toml:"poll_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	JobTimeout         int `toml:"job_timeout"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Retention controls how long terminal job records remain queryable.
type Retention struct {
	Hours         int `toml:"hours"`
	PurgeInterval int `toml:"purge_interval"`
}

// Normalizer configures the ffmpeg conversion step.
type Normalizer struct {
	FFmpegBinary          string   `toml:"ffmpeg_binary"`
	FFprobeBinary         string   `toml:"ffprobe_binary"`
	PassthroughExtensions []string `toml:"passthrough_extensions"`
	VerifyOutput          bool     `toml:"verify_output"`
}

// Engine configures the faster-whisper helper process.
type Engine struct {
	PythonBinary        string  `toml:"python_binary"`
	Model               string  `toml:"model"`
	Device              string  `toml:"device"`
	ComputeType         string  `toml:"compute_type"`
	BeamSize            int     `toml:"beam_size"`
	VADFilter           bool    `toml:"vad_filter"`
	VADThreshold        float64 `toml:"vad_threshold"`
	MinSpeechDurationMS int     `toml:"min_speech_duration_ms"`
	MaxJobsPerInstance  int     `toml:"max_jobs_per_instance"`
}

// API configures the HTTP ingestion gateway.
type API struct {
	Bind             string   `toml:"bind"`
	MaxUploadMB      int      `toml:"max_upload_mb"`
	CORSAllowOrigins []string `toml:"cors_allow_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scribe.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Queue      Queue      `toml:"queue"`
	Workers    Workers    `toml:"workers"`
	Retention  Retention  `toml:"retention"`
	Normalizer Normalizer `toml:"normalizer"`
	Engine     Engine     `toml:"engine"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. Returns the
// config, the path that was (or would have been) read, and whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				row, col := decodeErr.Position()
				return nil, "", false, fmt.Errorf("parse config %s:%d:%d: %w", resolvedPath, row, col, err)
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath is the SQLite database used by the sqlite queue backend.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// DaemonLockPath guards against two daemons sharing one state directory.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "scribe.lock")
}

// LogFilePath is the daemon's log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "scribe.log")
}

// RetentionWindow is the lifetime of a terminal job record.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Retention.Hours) * time.Hour
}

// JobTimeout returns the per-job deadline, or zero when unlimited.
func (c *Config) JobTimeout() time.Duration {
	return seconds(c.Workers.JobTimeout)
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.API.MaxUploadMB) << 20
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case pathValue == "~":
			pathValue = home
		case len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\'):
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
