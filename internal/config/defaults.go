package config

const (
	defaultUploadDir             = "~/.local/share/scribe/recordings"
	defaultWorkDir               = "~/.local/share/scribe/work"
	defaultStateDir              = "~/.local/share/scribe/state"
	defaultLogDir                = "~/.local/share/scribe/logs"
	defaultQueueBackend          = QueueBackendSQLite
	defaultRedisURL              = "redis://localhost:6379/3"
	defaultRedisPrefix           = "scribe"
	defaultWorkerCount           = 4
	defaultPollInterval          = 2
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultErrorRetryInterval    = 10
	defaultRetentionHours        = 24
	defaultPurgeInterval         = 600
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultPythonBinary          = "python3"
	defaultModel                 = "base"
	defaultDevice                = "cpu"
	defaultComputeType           = "int8"
	defaultBeamSize              = 5
	defaultVADThreshold          = 0.5
	defaultMinSpeechDurationMS   = 250
	defaultMaxJobsPerInstance    = 50
	defaultAPIBind               = "0.0.0.0:8000"
	defaultMaxUploadMB           = 100
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultNormalizerVerifyProbe = false
)

var defaultPassthroughExtensions = []string{".wav", ".flac"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			WorkDir:   defaultWorkDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Queue: Queue{
			Backend:     defaultQueueBackend,
			RedisURL:    defaultRedisURL,
			RedisPrefix: defaultRedisPrefix,
		},
		Workers: Workers{
			Count:              defaultWorkerCount,
			PollInterval:       defaultPollInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Retention: Retention{
			Hours:         defaultRetentionHours,
			PurgeInterval: defaultPurgeInterval,
		},
		Normalizer: Normalizer{
			FFmpegBinary:          defaultFFmpegBinary,
			FFprobeBinary:         defaultFFprobeBinary,
			PassthroughExtensions: append([]string(nil), defaultPassthroughExtensions...),
			VerifyOutput:          defaultNormalizerVerifyProbe,
		},
		Engine: Engine{
			PythonBinary:        defaultPythonBinary,
			Model:               defaultModel,
			Device:              defaultDevice,
			ComputeType:         defaultComputeType,
			BeamSize:            defaultBeamSize,
			VADFilter:           true,
			VADThreshold:        defaultVADThreshold,
			MinSpeechDurationMS: defaultMinSpeechDurationMS,
			MaxJobsPerInstance:  defaultMaxJobsPerInstance,
		},
		API: API{
			Bind:             defaultAPIBind,
			MaxUploadMB:      defaultMaxUploadMB,
			CORSAllowOrigins: []string{"*"},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
