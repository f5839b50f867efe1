package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 5 * time.Second
	// DefaultRateLimit keeps a cold cache from burning the upstream quota.
	DefaultRateLimit = rate.Limit(10)
	maxErrorBody     = 512
)

var (
	ErrNotConfigured = errors.New("weather API is not configured")
	ErrInvalidQuery  = errors.New("city or lat/lon is required")
	ErrNotFound      = errors.New("location not found")
	ErrUpstream      = errors.New("weather upstream failed")
)

// Client talks to an OpenWeatherMap-compatible current weather endpoint.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets the upstream request rate (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func NewClient(apiURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		apiURL:     apiURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// upstreamResponse is the subset of the OpenWeatherMap payload we read.
type upstreamResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// Current fetches current conditions in metric units, described in lang.
func (c *Client) Current(ctx context.Context, q Query, lang string) (*Report, error) {
	if c.apiKey == "" || c.apiURL == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	if q.City != "" {
		params.Set("q", q.City)
	} else {
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', 4, 64))
	}
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	if lang != "" {
		params.Set("lang", lang)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var payload upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrUpstream, err)
	}

	report := &Report{
		City:         payload.Name,
		Country:      payload.Sys.Country,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		Humidity:     payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
		report.Icon = payload.Weather[0].Icon
	}
	return report, nil
}
