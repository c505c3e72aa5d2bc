package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// Store is the Redis-backed queue.Backend.
type Store struct {
	client       *goredis.Client
	prefix       string
	retention    time.Duration
	blockTimeout time.Duration
	now          func() time.Time
}

var _ queue.Backend = (*Store)(nil)

// Open connects to cfg.Queue.RedisURL and verifies the connection.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	opts, err := goredis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return New(client, cfg.Queue.RedisPrefix, cfg.RetentionWindow()), nil
}

// New wraps an existing client. The store owns client and closes it on Close.
func New(client *goredis.Client, prefix string, retention time.Duration) *Store {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "scribe"
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Store{
		client:       client,
		prefix:       prefix,
		retention:    retention,
		blockTimeout: time.Second,
		now:          time.Now,
	}
}

func (s *Store) jobKey(handle string) string { return s.prefix + ":job:" + handle }
func (s *Store) pendingKey() string          { return s.prefix + ":pending" }
func (s *Store) processingKey() string       { return s.prefix + ":processing" }
func (s *Store) indexKey() string            { return s.prefix + ":jobs" }
func (s *Store) seqKey() string              { return s.prefix + ":seq" }

// Enqueue writes the job hash and pushes the handle onto the pending list in
// one transaction.
func (s *Store) Enqueue(ctx context.Context, inputPath string) (*queue.Job, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, queue.ErrEmptyInput
	}
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("enqueue job: next sequence: %w", err)
	}
	job := &queue.Job{
		Handle:      uuid.NewString(),
		InputPath:   inputPath,
		Status:      queue.StatusQueued,
		SubmittedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.jobKey(job.Handle),
			fieldHandle, job.Handle,
			fieldInput, job.InputPath,
			fieldStatus, string(job.Status),
			fieldSubmitted, millis(job.SubmittedAt),
			fieldSeq, seq,
		)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: float64(seq), Member: job.Handle})
		pipe.LPush(ctx, s.pendingKey(), job.Handle)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Dequeue blocks on the pending list and claims the first handle whose record
// is still queued.
func (s *Store) Dequeue(ctx context.Context, workerID string) (*queue.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		handle, err := s.client.BLMove(ctx, s.pendingKey(), s.processingKey(), "RIGHT", "LEFT", s.blockTimeout).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("dequeue: %w", err)
		}

		// The handle now sits on the processing list; finish the claim even if
		// ctx is cancelled so it is not stranded.
		claimCtx := context.WithoutCancel(ctx)
		claimed, err := claimScript.Run(claimCtx, s.client,
			[]string{s.jobKey(handle), s.processingKey()},
			workerID, millis(s.now()), queue.ProgressStarting, handle,
		).Int()
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", handle, err)
		}
		if claimed == 0 {
			continue
		}
		return s.Get(claimCtx, handle)
	}
}

// Get reads a live job.
func (s *Store) Get(ctx context.Context, handle string) (*queue.Job, error) {
	fields, err := s.client.HGetAll(ctx, s.jobKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", handle, err)
	}
	if len(fields) == 0 {
		return nil, queue.ErrNotFound
	}
	job, err := decodeJob(fields)
	if err != nil {
		return nil, err
	}
	if job.ExpiresAt != nil && !job.ExpiresAt.After(s.now()) {
		return nil, queue.ErrNotFound
	}
	return job, nil
}

// UpdateProgress sets the progress message of a processing job.
func (s *Store) UpdateProgress(ctx context.Context, handle, message string) error {
	return s.touch(ctx, handle, fieldProgress, message)
}

// Heartbeat refreshes last_heartbeat for a processing job.
func (s *Store) Heartbeat(ctx context.Context, handle string) error {
	return s.touch(ctx, handle, fieldHeartbeat, millis(s.now()))
}

func (s *Store) touch(ctx context.Context, handle, field, value string) error {
	rc, err := touchScript.Run(ctx, s.client, []string{s.jobKey(handle)}, field, value).Int()
	if err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}
	return s.guardResult(ctx, rc, handle, queue.StatusProcessing)
}

// Complete stores the result and moves a processing job to completed.
func (s *Store) Complete(ctx context.Context, handle string, result queue.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.finish(ctx, handle, queue.StatusCompleted, fieldResult, string(payload))
}

// Fail records message and moves a processing job to failed.
func (s *Store) Fail(ctx context.Context, handle, message string) error {
	if message == "" {
		message = "unknown error"
	}
	return s.finish(ctx, handle, queue.StatusFailed, fieldError, message)
}

func (s *Store) finish(ctx context.Context, handle string, status queue.Status, field, value string) error {
	now := s.now()
	rc, err := finishScript.Run(ctx, s.client,
		[]string{s.jobKey(handle), s.processingKey()},
		string(status), field, value,
		millis(now), millis(now.Add(s.retention)), s.retention.Milliseconds(), handle,
	).Int()
	if err != nil {
		return fmt.Errorf("%s job: %w", status, err)
	}
	return s.guardResult(ctx, rc, handle, status)
}

func (s *Store) guardResult(ctx context.Context, rc int, handle string, to queue.Status) error {
	switch rc {
	case 1:
		return nil
	case -1:
		return queue.ErrNotFound
	default:
		status, err := s.client.HGet(ctx, s.jobKey(handle), fieldStatus).Result()
		if err != nil {
			status = "unknown"
		}
		return queue.TransitionError(handle, queue.Status(status), to)
	}
}

// FailStale fails processing jobs whose heartbeat predates cutoff. Handles
// that were moved off pending but never claimed are pushed back instead.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time, message string) ([]*queue.Job, error) {
	handles, err := s.client.LRange(ctx, s.processingKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list processing: %w", err)
	}
	now := s.now()
	seen := make(map[string]struct{}, len(handles))
	var failed []*queue.Job
	for _, handle := range handles {
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		rc, err := staleScript.Run(ctx, s.client,
			[]string{s.jobKey(handle), s.processingKey(), s.pendingKey()},
			millis(cutoff), message, millis(now), millis(now.Add(s.retention)), s.retention.Milliseconds(), handle,
		).Int()
		if err != nil {
			return failed, fmt.Errorf("fail stale job %s: %w", handle, err)
		}
		if rc != 1 {
			continue
		}
		job, err := s.Get(ctx, handle)
		if err != nil {
			return failed, err
		}
		failed = append(failed, job)
	}
	return failed, nil
}

// PurgeExpired drops index entries whose job hash has expired. Redis removes
// the hashes themselves through their TTL.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	handles, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list index: %w", err)
	}
	if len(handles) == 0 {
		return 0, nil
	}
	pipe := s.client.Pipeline()
	exists := make([]*goredis.IntCmd, len(handles))
	for i, handle := range handles {
		exists[i] = pipe.Exists(ctx, s.jobKey(handle))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("check index: %w", err)
	}
	var gone []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			gone = append(gone, handles[i])
		}
	}
	if len(gone) == 0 {
		return 0, nil
	}
	removed, err := s.client.ZRem(ctx, s.indexKey(), gone...).Result()
	if err != nil {
		return 0, fmt.Errorf("purge index: %w", err)
	}
	return int(removed), nil
}

// List returns live jobs in submission order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	handles, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}
	if len(handles) == 0 {
		return nil, nil
	}
	want := make(map[queue.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(handles))
	for i, handle := range handles {
		cmds[i] = pipe.HGetAll(ctx, s.jobKey(handle))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	now := s.now()
	jobs := make([]*queue.Job, 0, len(handles))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		job, err := decodeJob(fields)
		if err != nil {
			return nil, err
		}
		if job.ExpiresAt != nil && !job.ExpiresAt.After(now) {
			continue
		}
		if len(want) > 0 && !want[job.Status] {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Stats counts live jobs per status.
func (s *Store) Stats(ctx context.Context) (queue.Stats, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return queue.Stats{}, err
	}
	var stats queue.Stats
	for _, job := range jobs {
		stats.Add(job.Status, 1)
	}
	return stats, nil
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
