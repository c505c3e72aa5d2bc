package services

import "context"

type contextKey string

const (
	jobHandleKey contextKey = "job_handle"
	workerKey    contextKey = "worker"
	requestIDKey contextKey = "request_id"
)

// WithJobHandle annotates context with the job handle being processed.
func WithJobHandle(ctx context.Context, handle string) context.Context {
	if handle == "" {
		return ctx
	}
	return context.WithValue(ctx, jobHandleKey, handle)
}

// JobHandleFromContext extracts the job handle if present.
func JobHandleFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, jobHandleKey)
}

// WithWorker annotates context with the executor identifier.
func WithWorker(ctx context.Context, worker string) context.Context {
	if worker == "" {
		return ctx
	}
	return context.WithValue(ctx, workerKey, worker)
}

// WorkerFromContext returns the executor identifier if present.
func WorkerFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, workerKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
