package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vitrin-cms/server/internal/metrics"
)

const DefaultCacheTTL = 10 * time.Minute

// Report is the normalized weather payload served to the website.
type Report struct {
	City         string    `json:"city"`
	Country      string    `json:"country,omitempty"`
	TemperatureC float64   `json:"temperature_c"`
	FeelsLikeC   float64   `json:"feels_like_c"`
	Humidity     int       `json:"humidity"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Query selects a location by city name or by coordinates.
type Query struct {
	City string
	Lat  *float64
	Lon  *float64
}

// ParseQuery reads city, or lat and lon, from URL query values.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{City: strings.TrimSpace(values.Get("city"))}
	if q.City != "" {
		if len(q.City) > 100 {
			return Query{}, ErrInvalidQuery
		}
		return q, nil
	}
	latRaw, lonRaw := values.Get("lat"), values.Get("lon")
	if latRaw == "" || lonRaw == "" {
		return Query{}, ErrInvalidQuery
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return Query{}, ErrInvalidQuery
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		return Query{}, ErrInvalidQuery
	}
	q.Lat, q.Lon = &lat, &lon
	return q, nil
}

// cacheKey rounds coordinates to ~1km so nearby visitors share entries.
func (q Query) cacheKey(lang string) string {
	if q.City != "" {
		return fmt.Sprintf("weather:city:%s:%s", strings.ToLower(q.City), lang)
	}
	round := func(v float64) float64 { return math.Round(v*100) / 100 }
	return fmt.Sprintf("weather:coord:%.2f,%.2f:%s", round(*q.Lat), round(*q.Lon), lang)
}

type Upstream interface {
	Current(ctx context.Context, q Query, lang string) (*Report, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service answers weather lookups from cache first, then the upstream API.
type Service struct {
	upstream Upstream
	cache    Cache
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService builds the lookup service. cache may be nil, in which case
// every lookup goes upstream.
func NewService(upstream Upstream, cache Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With().Str("component", "weather").Logger(),
		now:      time.Now,
	}
}

func (s *Service) Current(ctx context.Context, q Query, lang string) (Report, error) {
	if q.City == "" && (q.Lat == nil || q.Lon == nil) {
		return Report{}, ErrInvalidQuery
	}
	key := q.cacheKey(lang)

	if s.cache != nil {
		var cached Report
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("weather cache read failed")
		}
		if hit {
			metrics.WeatherRequestsTotal.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	start := time.Now()
	report, err := s.upstream.Current(ctx, q, lang)
	metrics.WeatherUpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WeatherRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("key", key).Dur("latency", time.Since(start)).Msg("weather lookup failed")
		return Report{}, err
	}
	metrics.WeatherRequestsTotal.WithLabelValues("upstream").Inc()

	report.FetchedAt = s.now().UTC()
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("weather cache write failed")
		}
	}
	return *report, nil
}
