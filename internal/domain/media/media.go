// Package media orchestrates uploads to the configured storage backends and
// keeps the media library records.
package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
)

var (
	ErrTooLarge           = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType    = errors.New("file type is not allowed")
	ErrEmptyFile          = errors.New("file is empty")
	ErrBackendUnavailable = errors.New("storage backend is not configured")
	ErrNotVideo           = errors.New("media is not a video")
)

const (
	BackendFileService = "fileservice"
	BackendObjectStore = "objectstore"
)

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
)

// AllowedTypes maps accepted content types to their canonical extension.
var AllowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

type Media struct {
	ID            string    `json:"id"`
	Backend       string    `json:"backend"`
	Key           string    `json:"key"`
	URL           string    `json:"url"`
	OriginalName  string    `json:"original_name"`
	ContentType   string    `json:"content_type"`
	Kind          Kind      `json:"kind"`
	Size          int64     `json:"size"`
	Alt           string    `json:"alt,omitempty"`
	Status        Status    `json:"status"`
	VariantOf     *string   `json:"variant_of,omitempty"`
	CompressedURL string    `json:"compressed_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Upload is a file received from the admin UI.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
	Folder   string
	Alt      string
	Backend  string
}

type Filters struct {
	content.ListParams
	Kind Kind
}

type Stats struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Storage is a place uploaded bytes can live.
type Storage interface {
	Name() string
	// Put stores the object under key and returns its public URL.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Fetcher is implemented by backends that can read objects back, which
// video compression needs.
type Fetcher interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Compressor transcodes a video file on disk.
type Compressor interface {
	Compress(ctx context.Context, inputPath, outputPath string) error
}

// Enqueuer schedules background work for uploaded media.
type Enqueuer interface {
	EnqueueCompression(ctx context.Context, mediaID string) error
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[Media], error)
	Get(ctx context.Context, id string) (*Media, error)
	Create(ctx context.Context, m Media) (*Media, error)
	UpdateAlt(ctx context.Context, id, alt string) (*Media, error)
	MarkStatus(ctx context.Context, id string, status Status, compressedURL string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
}
