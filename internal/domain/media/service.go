package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/sanitize"
)

const DefaultFolder = "uploads"

type Config struct {
	DefaultBackend     string
	MaxBytes           int64
	CompressionEnabled bool
}

type Service struct {
	repo       Repository
	backends   map[string]Storage
	cfg        Config
	enqueuer   Enqueuer
	compressor Compressor
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService wires the media service. Backends that are nil are treated as
// unconfigured; enqueuer and compressor may be nil when video compression
// is disabled.
func NewService(repo Repository, backends []Storage, cfg Config, enqueuer Enqueuer, compressor Compressor, logger zerolog.Logger) *Service {
	available := make(map[string]Storage, len(backends))
	for _, b := range backends {
		if b != nil {
			available[b.Name()] = b
		}
	}
	return &Service{
		repo:       repo,
		backends:   available,
		cfg:        cfg,
		enqueuer:   enqueuer,
		compressor: compressor,
		logger:     logger.With().Str("component", "media").Logger(),
		now:        time.Now,
	}
}

func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	params.Status = ""
	filters := Filters{ListParams: params}
	switch kind := Kind(strings.ToLower(strings.TrimSpace(values.Get("kind")))); kind {
	case "", KindImage, KindVideo, KindDocument:
		filters.Kind = kind
	default:
		return Filters{}, content.FilterError{Field: "kind", Message: "must be image, video or document"}
	}
	return filters, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[Media], error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// Backends lists the names of configured backends.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.backends))
	for _, name := range []string{BackendObjectStore, BackendFileService} {
		if _, ok := s.backends[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Upload validates, stores, and records a file. Videos are queued for
// compression when it is enabled.
func (s *Service) Upload(ctx context.Context, up Upload) (*Media, error) {
	backendName := strings.TrimSpace(up.Backend)
	if backendName == "" {
		backendName = s.cfg.DefaultBackend
	}
	backend, ok := s.backends[backendName]
	if !ok {
		return nil, ErrBackendUnavailable
	}
	if up.Size > s.cfg.MaxBytes && s.cfg.MaxBytes > 0 {
		return nil, ErrTooLarge
	}

	body := bufio.NewReaderSize(up.Body, 512)
	head, err := body.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	contentType := DetectContentType(head, up.Filename)
	ext, ok := AllowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	id := ids.NewULID()
	key := ObjectKey(up.Folder, id, ext, s.now())

	var reader io.Reader = body
	if s.cfg.MaxBytes > 0 {
		reader = &limitedReader{r: body, remaining: s.cfg.MaxBytes}
	}
	publicURL, err := backend.Put(ctx, key, reader, up.Size, contentType)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("store %s on %s: %w", key, backend.Name(), err)
	}

	kind := KindOf(contentType)
	status := StatusReady
	compress := kind == KindVideo && s.cfg.CompressionEnabled && s.enqueuer != nil && s.canFetch(backend)
	if compress {
		status = StatusProcessing
	}

	record, err := s.repo.Create(ctx, Media{
		ID:           id,
		Backend:      backend.Name(),
		Key:          key,
		URL:          publicURL,
		OriginalName: cleanFilename(up.Filename),
		ContentType:  contentType,
		Kind:         kind,
		Size:         up.Size,
		Alt:          sanitize.Text(strings.TrimSpace(up.Alt)),
		Status:       status,
	})
	if err != nil {
		if delErr := backend.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned upload")
		}
		return nil, err
	}

	if compress {
		if err := s.enqueuer.EnqueueCompression(ctx, record.ID); err != nil {
			s.logger.Error().Err(err).Str("media_id", record.ID).Msg("failed to enqueue video compression")
			_ = s.repo.MarkStatus(ctx, record.ID, StatusReady, "")
			record.Status = StatusReady
		}
	}

	s.logger.Info().
		Str("media_id", record.ID).
		Str("backend", record.Backend).
		Str("content_type", contentType).
		Int64("size", up.Size).
		Msg("media uploaded")
	return record, nil
}

func (s *Service) UpdateAlt(ctx context.Context, id, alt string) (*Media, error) {
	alt = sanitize.Text(strings.TrimSpace(alt))
	if len([]rune(alt)) > 300 {
		return nil, content.ValidationError{Fields: map[string]string{"alt": "must be at most 300 characters"}}
	}
	return s.repo.UpdateAlt(ctx, id, alt)
}

// Delete removes the stored object and then the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	backend, ok := s.backends[record.Backend]
	if !ok {
		return ErrBackendUnavailable
	}
	if err := backend.Delete(ctx, record.Key); err != nil {
		return fmt.Errorf("delete object %s: %w", record.Key, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("media_id", id).Msg("media deleted")
	return nil
}

// CompressVideo downloads a video, transcodes it, uploads the result as a
// variant, and marks the original ready.
func (s *Service) CompressVideo(ctx context.Context, id string) (*Media, error) {
	if s.compressor == nil {
		return nil, errors.New("video compression is not configured")
	}
	original, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Kind != KindVideo {
		return nil, ErrNotVideo
	}
	backend, ok := s.backends[original.Backend]
	if !ok {
		return nil, ErrBackendUnavailable
	}
	fetcher, ok := backend.(Fetcher)
	if !ok {
		return nil, fmt.Errorf("backend %s cannot read objects back", backend.Name())
	}

	dir, err := os.MkdirTemp("", "vitrin-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input"+path.Ext(original.Key))
	outputPath := filepath.Join(dir, "output.mp4")
	if err := download(ctx, fetcher, original.Key, inputPath); err != nil {
		return nil, err
	}
	if err := s.compressor.Compress(ctx, inputPath, outputPath); err != nil {
		return nil, fmt.Errorf("compress %s: %w", original.ID, err)
	}

	out, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("open compressed output: %w", err)
	}
	defer out.Close()
	info, err := out.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat compressed output: %w", err)
	}

	key := CompressedKey(original.Key)
	publicURL, err := backend.Put(ctx, key, out, info.Size(), "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("store compressed video: %w", err)
	}

	variantOf := original.ID
	variant, err := s.repo.Create(ctx, Media{
		ID:           ids.NewULID(),
		Backend:      original.Backend,
		Key:          key,
		URL:          publicURL,
		OriginalName: strings.TrimSuffix(original.OriginalName, path.Ext(original.OriginalName)) + "-compressed.mp4",
		ContentType:  "video/mp4",
		Kind:         KindVideo,
		Size:         info.Size(),
		Alt:          original.Alt,
		Status:       StatusReady,
		VariantOf:    &variantOf,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkStatus(ctx, original.ID, StatusReady, publicURL); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("media_id", original.ID).
		Int64("original_size", original.Size).
		Int64("compressed_size", info.Size()).
		Msg("video compressed")
	return variant, nil
}

// MarkFailed records that processing gave up on a media item.
func (s *Service) MarkFailed(ctx context.Context, id string) error {
	return s.repo.MarkStatus(ctx, id, StatusFailed, "")
}

func (s *Service) canFetch(backend Storage) bool {
	_, ok := backend.(Fetcher)
	return ok
}

func download(ctx context.Context, fetcher Fetcher, key, dest string) error {
	src, err := fetcher.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	defer src.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}

// DetectContentType sniffs the first bytes of a file and falls back to the
// filename extension for formats the sniffer does not know (svg, webm, mov).
func DetectContentType(head []byte, filename string) string {
	sniffed := http.DetectContentType(head)
	sniffed, _, _ = strings.Cut(sniffed, ";")
	sniffed = strings.TrimSpace(sniffed)
	if _, ok := AllowedTypes[sniffed]; ok {
		return sniffed
	}

	switch sniffed {
	case "text/xml", "text/plain", "application/octet-stream":
		byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
		byExt, _, _ = strings.Cut(byExt, ";")
		if byExt == "image/svg+xml" && !looksLikeSVG(head) {
			return sniffed
		}
		if _, ok := AllowedTypes[byExt]; ok {
			return byExt
		}
		switch strings.ToLower(path.Ext(filename)) {
		case ".mov":
			return "video/quicktime"
		case ".webm":
			return "video/webm"
		case ".svg":
			if looksLikeSVG(head) {
				return "image/svg+xml"
			}
		}
	}
	return sniffed
}

func looksLikeSVG(head []byte) bool {
	return strings.Contains(strings.ToLower(string(head)), "<svg")
}

// KindOf groups a content type into image, video, or document.
func KindOf(contentType string) Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}

// ObjectKey builds {folder}/{yyyy}/{mm}/{id}{ext}.
func ObjectKey(folder, id, ext string, at time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s%s", CleanFolder(folder), at.UTC().Year(), int(at.UTC().Month()), strings.ToLower(id), ext)
}

// CompressedKey returns the key of the compressed variant of a video.
func CompressedKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "-compressed.mp4"
}

// CleanFolder turns user input into a safe key prefix of slug segments.
func CleanFolder(folder string) string {
	var parts []string
	for _, segment := range strings.Split(folder, "/") {
		if slug := content.Slugify(segment); slug != "" {
			parts = append(parts, slug)
		}
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return DefaultFolder
	}
	return strings.Join(parts, "/")
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = sanitize.Text(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

// limitedReader fails with ErrTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
