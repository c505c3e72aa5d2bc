package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
)

// Target sample layout.
const (
	SampleRate = 16000
	Channels   = 1
	Codec      = "pcm_s16le"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober inspects a file. It defaults to ffprobe.Inspect.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Normalizer runs ffmpeg conversions into the work directory.
type Normalizer struct {
	ffmpegBinary string
	workDir      string
	passthrough  map[string]struct{}
	verify       bool
	run          CommandRunner
	probe        Prober
	logger       *slog.Logger
}

// New builds a Normalizer from cfg.
func New(cfg *config.Config, logger *slog.Logger) *Normalizer {
	passthrough := make(map[string]struct{}, len(cfg.Normalizer.PassthroughExtensions))
	for _, ext := range cfg.Normalizer.PassthroughExtensions {
		passthrough[strings.ToLower(ext)] = struct{}{}
	}
	ffprobeBinary := cfg.Normalizer.FFprobeBinary
	return &Normalizer{
		ffmpegBinary: cfg.Normalizer.FFmpegBinary,
		workDir:      cfg.Paths.WorkDir,
		passthrough:  passthrough,
		verify:       cfg.Normalizer.VerifyOutput,
		run:          runCommand,
		probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBinary, path)
		},
		logger: logging.NewComponentLogger(logger, "normalizer"),
	}
}

// WithCommandRunner replaces the ffmpeg runner (for testing).
func (n *Normalizer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		n.run = runner
	}
}

// WithProber replaces the output verifier (for testing).
func (n *Normalizer) WithProber(probe Prober) {
	if probe != nil {
		n.probe = probe
	}
}

// NeedsConversion reports whether path must be converted before
// transcription. The decision is made on the extension alone.
func (n *Normalizer) NeedsConversion(path string) bool {
	_, ok := n.passthrough[strings.ToLower(filepath.Ext(path))]
	return !ok
}

// OutputPath is the converted file location for handle.
func (n *Normalizer) OutputPath(handle string) string {
	return filepath.Join(n.workDir, handle+".wav")
}

// Normalize converts input into OutputPath(handle) and returns that path.
func (n *Normalizer) Normalize(ctx context.Context, input, handle string) (string, error) {
	output := n.OutputPath(handle)
	fail := func(err error) (string, error) {
		if _, rmErr := fileutil.RemoveIfExists(output); rmErr != nil {
			logging.WarnWithContext(n.logger, "failed to remove partial conversion output", "cleanup_failed",
				logging.String("path", output),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			)
		}
		return "", &ConversionError{Input: input, Output: output, Err: err}
	}

	if strings.TrimSpace(handle) == "" {
		return fail(errors.New("empty job handle"))
	}
	if err := os.MkdirAll(n.workDir, 0o755); err != nil {
		return fail(fmt.Errorf("ensure work dir: %w", err))
	}

	n.logger.Debug("converting audio",
		logging.String("input", input),
		logging.String("output", output),
	)
	if out, err := n.run(ctx, n.ffmpegBinary, buildArgs(input, output)...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fail(fmt.Errorf("ffmpeg: %w: %s", err, detail))
		}
		return fail(fmt.Errorf("ffmpeg: %w", err))
	}

	info, err := os.Stat(output)
	if err != nil {
		return fail(fmt.Errorf("ffmpeg produced no output: %w", err))
	}
	if info.Size() == 0 {
		return fail(errors.New("ffmpeg produced an empty file"))
	}

	if n.verify {
		if err := n.verifyOutput(ctx, output); err != nil {
			return fail(err)
		}
	}
	return output, nil
}

func (n *Normalizer) verifyOutput(ctx context.Context, output string) error {
	result, err := n.probe(ctx, output)
	if err != nil {
		return fmt.Errorf("verify output: %w", err)
	}
	stream, err := result.Audio()
	if err != nil {
		return fmt.Errorf("verify output: %w", err)
	}
	if !stream.MatchesPCM(SampleRate, Channels) {
		return fmt.Errorf("verify output: got %s %s Hz %d ch, want %s %d Hz %d ch",
			stream.CodecName, stream.SampleRate, stream.Channels, Codec, SampleRate, Channels)
	}
	return nil
}

func buildArgs(input, output string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-c:a", Codec,
		output,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}
