package whisper

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
)

//go:embed assets/transcribe_helper.py
var helperScript string

const (
	component   = "whisper"
	stopTimeout = 5 * time.Second
	stderrLimit = 4 << 10
)

// Engine owns one helper process. It is safe for concurrent use, but calls
// are serialized.
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	proc *helper

	// Readable without mu while a call is in flight.
	active atomic.Pointer[helper]
}

// New returns an Engine that has not started its helper yet.
func New(opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, component),
	}
}

// Loaded reports whether the helper is running with its model in memory.
func (e *Engine) Loaded() bool {
	proc := e.active.Load()
	return proc != nil && !proc.exited()
}

type request struct {
	Audio string `json:"audio"`
}

type response struct {
	Ready               *bool     `json:"ready,omitempty"`
	Error               string    `json:"error,omitempty"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability"`
	Duration            float64   `json:"duration"`
	Segments            []Segment `json:"segments"`
}

// Transcribe runs speech recognition on path. The helper is started on first
// use. A cancelled ctx kills the helper; the next call starts a fresh one.
func (e *Engine) Transcribe(ctx context.Context, path string) (Transcript, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil || e.proc.exited() {
		proc, err := e.start(ctx)
		if err != nil {
			return Transcript{}, err
		}
		e.setProc(proc)
	}

	payload, err := json.Marshal(request{Audio: path})
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, component, "encode request", "", err)
	}
	if _, err := e.proc.stdin.Write(append(payload, '\n')); err != nil {
		e.discard()
		return Transcript{}, services.Wrap(services.ErrTranscription, component, "send request", "helper not accepting input", err)
	}

	resp, err := e.proc.next(ctx)
	if err != nil {
		e.discard()
		return Transcript{}, e.classify(ctx, "transcribe", err)
	}
	if resp.Error != "" {
		return Transcript{}, services.Wrap(services.ErrTranscription, component, "transcribe", resp.Error, nil)
	}

	return Transcript{
		Segments:            resp.Segments,
		Language:            resp.Language,
		LanguageProbability: language.Probability(resp.LanguageProbability),
		Duration:            resp.Duration,
	}, nil
}

// Close stops the helper. The Engine may be used again afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	err := e.proc.stop()
	e.setProc(nil)
	return err
}

func (e *Engine) setProc(proc *helper) {
	e.proc = proc
	e.active.Store(proc)
}

func (e *Engine) start(ctx context.Context) (*helper, error) {
	started := time.Now()
	e.logger.Info("loading transcription model",
		logging.String("model", e.opts.Model),
		logging.String("device", e.opts.Device),
		logging.String("compute_type", e.opts.ComputeType),
	)
	proc, err := launch(e.opts)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "start helper", e.opts.PythonBinary, err)
	}
	resp, err := proc.next(ctx)
	if err != nil {
		_ = proc.kill()
		return nil, e.classify(ctx, "load model", err)
	}
	if resp.Ready == nil || !*resp.Ready {
		_ = proc.stop()
		msg := resp.Error
		if msg == "" {
			msg = "helper did not report ready"
		}
		return nil, services.Wrap(services.ErrTranscription, component, "load model", msg, nil)
	}
	e.logger.Info("transcription model loaded",
		logging.String("model", e.opts.Model),
		logging.Duration("load_time", time.Since(started)),
	)
	return proc, nil
}

func (e *Engine) discard() {
	if e.proc == nil {
		return
	}
	if err := e.proc.kill(); err != nil {
		e.logger.Debug("helper kill failed", logging.Error(err))
	}
	e.setProc(nil)
}

func (e *Engine) classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, component, op, "deadline exceeded", ctxErr)
		}
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return services.Wrap(services.ErrTranscription, component, op, "", err)
}

// helper is a running interpreter process.
type helper struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan []byte
	stderr *tailBuffer
	done   chan struct{}
	err    error
}

func launch(opts Options) (*helper, error) {
	cmd := exec.Command(opts.PythonBinary, opts.args(helperScript)...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	// A plain pipe keeps Wait from closing stdout under the reader.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	cmd.Stdout = stdoutW
	h := &helper{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan []byte, 1),
		stderr: &tailBuffer{limit: stderrLimit},
		done:   make(chan struct{}),
	}
	cmd.Stderr = h.stderr
	cmd.WaitDelay = stopTimeout
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stdoutW.Close()
		return nil, err
	}
	_ = stdoutW.Close()

	go func() {
		defer close(h.lines)
		defer stdout.Close()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64<<10), 64<<20)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case h.lines <- line:
			case <-h.done:
				return
			}
		}
	}()
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

func (h *helper) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// next waits for the next JSON line on stdout.
func (h *helper) next(ctx context.Context) (response, error) {
	for {
		select {
		case line, ok := <-h.lines:
			if !ok {
				<-h.done
				return response{}, h.exitError()
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			var resp response
			if err := json.Unmarshal(line, &resp); err != nil {
				return response{}, fmt.Errorf("decode helper output %q: %w", truncate(string(line), 200), err)
			}
			return resp, nil
		case <-ctx.Done():
			_ = h.kill()
			return response{}, ctx.Err()
		}
	}
}

func (h *helper) exitError() error {
	detail := strings.TrimSpace(h.stderr.String())
	if h.err == nil {
		h.err = errors.New("helper exited")
	}
	if detail == "" {
		return h.err
	}
	return fmt.Errorf("%w: %s", h.err, truncate(detail, 500))
}

func (h *helper) stop() error {
	_ = h.stdin.Close()
	select {
	case <-h.done:
		return nil
	case <-time.After(stopTimeout):
		return h.kill()
	}
}

func (h *helper) kill() error {
	_ = h.stdin.Close()
	if h.exited() {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-h.done
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
