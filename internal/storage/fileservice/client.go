// Package fileservice uploads media to the external file hosting service.
// The service takes a Basic-Auth multipart POST with a single "file" field
// and answers with JSON carrying the stored file's URL.
package fileservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/domain/media"
)

const DefaultTimeout = 60 * time.Second

var ErrNotConfigured = errors.New("file service url is not configured")

var _ media.Storage = (*Client)(nil)

type Client struct {
	httpClient *http.Client
	endpoint   string
	username   string
	password   string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func New(cfg config.FileServiceConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("file service url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.URL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return media.BackendFileService }

// uploadResponse accepts the field names the service has used over time.
type uploadResponse struct {
	URL      string `json:"url"`
	FileURL  string `json:"file_url"`
	Location string `json:"location"`
	Error    string `json:"error"`
}

func (r uploadResponse) location() string {
	for _, v := range []string{r.URL, r.FileURL, r.Location} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Put streams body to the service as multipart/form-data. The key becomes
// the uploaded filename so the service keeps the folder layout.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, key))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = writer.WriteField("folder", path.Dir(key))
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to file service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read file service response: %w", err)
	}
	var parsed uploadResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("file service upload failed (%d): %s", resp.StatusCode, msg)
	}
	location := parsed.location()
	if location == "" {
		return "", errors.New("file service response carries no url")
	}
	return location, nil
}

// Delete asks the service to drop the file. A missing file is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+"/files/"+escapeKey(key), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete from file service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return nil
	}
	return fmt.Errorf("file service delete failed (%d)", resp.StatusCode)
}

// Get downloads a stored file; it lets the service act as a media.Fetcher.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/files/"+escapeKey(key), nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download from file service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("file service download failed (%d)", resp.StatusCode)
	}
	return resp.Body, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
