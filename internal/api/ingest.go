package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// Ingestion errors. Both are also tagged services.ErrValidation.
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUploadTooLarge       = errors.New("upload too large")
)

// contentTypeExtensions maps accepted upload media types to the extension used
// when the client filename carries none.
var contentTypeExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/mp4":   ".m4a",
	"audio/ogg":   ".ogg",
	"audio/webm":  ".webm",
}

// extensionContentTypes is used for local submissions, which have no header.
var extensionContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/m4a",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".webm": "audio/webm",
}

// SupportedContentTypes lists the accepted upload media types in sorted order.
func SupportedContentTypes() []string {
	out := make([]string, 0, len(contentTypeExtensions))
	for ct := range contentTypeExtensions {
		out = append(out, ct)
	}
	slices.Sort(out)
	return out
}

// SupportedContentType reports whether contentType (parameters allowed) is accepted.
func SupportedContentType(contentType string) bool {
	_, ok := contentTypeExtensions[mediaType(contentType)]
	return ok
}

func mediaType(contentType string) string {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return parsed
}

// Enqueuer is the part of the queue the gateway writes to.
type Enqueuer interface {
	Enqueue(ctx context.Context, inputPath string) (*queue.Job, error)
}

// Ingestor stores uploads and turns them into queued jobs.
type Ingestor struct {
	uploadDir string
	maxBytes  int64
	queue     Enqueuer
	logger    *slog.Logger
	newName   func() string
}

// NewIngestor constructs an Ingestor writing into cfg.Paths.UploadDir.
func NewIngestor(cfg *config.Config, q Enqueuer, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		uploadDir: cfg.Paths.UploadDir,
		maxBytes:  cfg.MaxUploadBytes(),
		queue:     q,
		logger:    logging.NewComponentLogger(logger, "ingest"),
		newName:   uuid.NewString,
	}
}

// Submit validates contentType, streams body to a fresh file under the upload
// directory and enqueues it. The stored file is removed if anything after the
// write fails.
func (i *Ingestor) Submit(ctx context.Context, filename, contentType string, body io.Reader) (*queue.Job, error) {
	ct := mediaType(contentType)
	fallbackExt, ok := contentTypeExtensions[ct]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "ingest", "submit", "",
			fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType))
	}

	dst := filepath.Join(i.uploadDir, i.newName()+uploadExtension(filename, fallbackExt))
	written, err := fileutil.WriteStream(dst, body, i.maxBytes)
	if err != nil {
		if errors.Is(err, fileutil.ErrTooLarge) {
			return nil, services.Wrap(services.ErrValidation, "ingest", "submit", "",
				fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, i.maxBytes))
		}
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job, err := i.queue.Enqueue(ctx, dst)
	if err != nil {
		if _, rmErr := fileutil.RemoveIfExists(dst); rmErr != nil {
			logging.WarnWithContext(i.logger, "failed to remove upload after enqueue error", "cleanup_failed",
				logging.String("path", dst),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "remove the file manually"),
				logging.String(logging.FieldImpact, "orphaned upload occupies disk space"),
			)
		}
		return nil, fmt.Errorf("enqueue upload: %w", err)
	}

	i.logger.InfoContext(ctx, "upload queued",
		logging.Args(
			logging.String(logging.FieldEventType, "upload_queued"),
			logging.String(logging.FieldJobID, job.Handle),
			logging.String("filename", filename),
			logging.String("content_type", ct),
			logging.Int64("bytes", written),
		)...,
	)
	return job, nil
}

// SubmitFile copies a local file into the upload directory and enqueues the
// copy. The source is left untouched.
func (i *Ingestor) SubmitFile(ctx context.Context, path string) (*queue.Job, error) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := extensionContentTypes[ext]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "ingest", "submit file", "",
			fmt.Errorf("%w: extension %q", ErrUnsupportedMediaType, ext))
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrValidation, "ingest", "submit file", "audio file not found: "+path, nil)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "ingest", "submit file", path+" is a directory", nil)
	}
	return i.Submit(ctx, filepath.Base(path), contentType, f)
}

// uploadExtension keeps the client's extension when it looks like one and
// falls back to the content type's otherwise.
func uploadExtension(filename, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return fallback
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fallback
		}
	}
	return ext
}
