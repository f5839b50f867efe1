package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/api"
	"github.com/vitrin-cms/server/internal/api/handlers"
	"github.com/vitrin-cms/server/internal/assistant"
	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/auth"
	"github.com/vitrin-cms/server/internal/cache"
	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/domain/blogs"
	"github.com/vitrin-cms/server/internal/domain/dashboard"
	"github.com/vitrin-cms/server/internal/domain/events"
	"github.com/vitrin-cms/server/internal/domain/media"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/domain/pages"
	"github.com/vitrin-cms/server/internal/domain/products"
	"github.com/vitrin-cms/server/internal/domain/settings"
	"github.com/vitrin-cms/server/internal/domain/sliders"
	"github.com/vitrin-cms/server/internal/domain/team"
	"github.com/vitrin-cms/server/internal/domain/users"
	"github.com/vitrin-cms/server/internal/email"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/jobs"
	"github.com/vitrin-cms/server/internal/metrics"
	"github.com/vitrin-cms/server/internal/search"
	"github.com/vitrin-cms/server/internal/storage/fileservice"
	"github.com/vitrin-cms/server/internal/storage/objectstore"
	"github.com/vitrin-cms/server/internal/storage/postgres"
	"github.com/vitrin-cms/server/internal/video"
	"github.com/vitrin-cms/server/internal/weather"
)

const siteName = "Vitrin"

// app holds every long-lived dependency. Commands that only need part of it
// still build all of it; construction does not start background work.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	pool    *pgxpool.Pool
	repo    *postgres.Repository
	redis   *cache.Redis
	meili   *search.Meili
	river   *river.Client[pgx.Tx]
	locales i18n.Set
	jwt     *auth.JWTManager
	audit   *audit.Logger

	users     *users.Service
	products  *products.Service
	blogs     *blogs.Service
	events    *events.Service
	team      *team.Service
	sliders   *sliders.Service
	pages     *pages.Service
	menus     *menus.Service
	settings  *settings.Service
	media     *media.Service
	dashboard *dashboard.Service
	search    *search.Service
	weather   *weather.Service
	assistant *assistant.Service
}

// lateInserter lets services hold an enqueuer before the River client
// exists. The client needs workers, and workers need the services.
type lateInserter struct {
	client *river.Client[pgx.Tx]
}

func (l *lateInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if l.client == nil {
		return nil, errors.New("job queue is not ready")
	}
	return l.client.Insert(ctx, args, opts)
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	locales, err := i18n.NewSet(cfg.Locales.Default, cfg.Locales.Supported)
	if err != nil {
		return nil, fmt.Errorf("locales: %w", err)
	}
	a.locales = locales

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	a.pool = pool

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		a.close()
		return nil, err
	}
	a.repo = repo

	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		} else {
			a.redis = rdb
		}
	}

	a.audit = audit.NewLogger(logger)
	a.jwt = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, "vitrin")

	mailer, err := email.NewService(cfg.Email, siteName, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("email: %w", err)
	}

	late := &lateInserter{}
	enqueuer := jobs.NewEnqueuer(late, logger)

	a.users = users.NewService(repo.Users(), mailer, a.jwt, a.audit, cfg.Server.BaseURL, logger)
	a.products = products.NewService(repo.Products(), locales, enqueuer, logger)
	a.blogs = blogs.NewService(repo.Blogs(), locales, enqueuer, logger)
	a.events = events.NewService(repo.Events(), locales, enqueuer, logger)
	a.team = team.NewService(repo.Team(), locales, enqueuer, logger)
	a.sliders = sliders.NewService(repo.Sliders(), locales, enqueuer, logger)
	a.pages = pages.NewService(repo.Pages(), locales, enqueuer, logger)
	a.menus = menus.NewService(repo.Menus(), locales, logger)
	a.dashboard = dashboard.NewService(repo.Dashboard())

	if a.redis != nil {
		a.settings = settings.NewService(repo.Settings(), a.redis, locales, logger)
	} else {
		a.settings = settings.NewService(repo.Settings(), nil, locales, logger)
	}

	backends, err := storageBackends(cfg.Storage, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	mediaCfg := media.Config{
		DefaultBackend:     cfg.Storage.DefaultBackend,
		MaxBytes:           cfg.Storage.MaxUploadBytes,
		CompressionEnabled: cfg.Video.Enabled,
	}
	ffmpeg, err := video.New(cfg.Video, logger)
	switch {
	case errors.Is(err, video.ErrDisabled):
		a.media = media.NewService(repo.Media(), backends, mediaCfg, enqueuer, nil, logger)
	case err != nil:
		logger.Warn().Err(err).Msg("video compression unavailable")
		mediaCfg.CompressionEnabled = false
		a.media = media.NewService(repo.Media(), backends, mediaCfg, enqueuer, nil, logger)
	default:
		a.media = media.NewService(repo.Media(), backends, mediaCfg, enqueuer, ffmpeg, logger)
	}

	if cfg.Search.MeiliURL != "" {
		a.meili = search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliKey, logger)
		a.search = search.NewService(a.meili, repo.Search(), locales, logger)
	} else {
		a.search = search.NewService(nil, repo.Search(), locales, logger)
	}

	if cfg.Weather.APIKey != "" {
		upstream := weather.NewClient(cfg.Weather.APIURL, cfg.Weather.APIKey,
			weather.WithHTTPClient(&http.Client{Timeout: cfg.Weather.Timeout}))
		if a.redis != nil {
			a.weather = weather.NewService(upstream, a.redis, cfg.Weather.CacheTTL, logger)
		} else {
			a.weather = weather.NewService(upstream, nil, cfg.Weather.CacheTTL, logger)
		}
	}

	if cfg.Assistant.APIKey != "" {
		gemini, err := assistant.NewGemini(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model)
		if err != nil {
			logger.Warn().Err(err).Msg("assistant unavailable")
			a.assistant = assistant.NewService(nil, locales, logger)
		} else {
			a.assistant = assistant.NewService(gemini, locales, logger)
		}
	} else {
		a.assistant = assistant.NewService(nil, locales, logger)
	}

	workers := jobs.NewWorkers(jobs.Deps{
		Pool:    pool,
		Media:   a.media,
		Indexer: a.search,
		Logger:  logger,
	})
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := jobs.NewClient(pool, workers, slogger, logger,
		[]rivertype.Hook{metrics.NewRiverMetricsHook()}, jobs.NewPeriodicJobs())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("river client: %w", err)
	}
	a.river = client
	late.client = client

	return a, nil
}

// storageBackends returns every media backend that has configuration.
// Unconfigured backends are skipped; a broken configuration is an error.
func storageBackends(cfg config.StorageConfig, logger zerolog.Logger) ([]media.Storage, error) {
	var backends []media.Storage

	fs, err := fileservice.New(cfg.FileService)
	switch {
	case errors.Is(err, fileservice.ErrNotConfigured):
		logger.Debug().Msg("file service backend not configured")
	case err != nil:
		return nil, fmt.Errorf("file service: %w", err)
	default:
		backends = append(backends, fs)
	}

	store, err := objectstore.New(cfg.ObjectStore)
	switch {
	case errors.Is(err, objectstore.ErrNotConfigured):
		logger.Debug().Msg("object store backend not configured")
	case err != nil:
		return nil, fmt.Errorf("object store: %w", err)
	default:
		backends = append(backends, store)
	}

	return backends, nil
}

// routerDeps adapts the app to the HTTP layer.
func (a *app) routerDeps(health *handlers.HealthChecker, build handlers.BuildInfo) api.Deps {
	d := api.Deps{
		Config:    a.cfg,
		Logger:    a.logger,
		Locales:   a.locales,
		JWT:       a.jwt,
		Audit:     a.audit,
		Health:    health,
		Build:     build,
		Users:     a.users,
		Products:  a.products,
		Blogs:     a.blogs,
		Events:    a.events,
		Team:      a.team,
		Sliders:   a.sliders,
		Pages:     a.pages,
		Menus:     a.menus,
		Settings:  a.settings,
		Media:     a.media,
		Dashboard: a.dashboard,
		Search:    a.search,
		Assistant: a.assistant,
	}
	if a.weather != nil {
		d.Weather = a.weather
	}
	return d
}

func (a *app) healthDeps(jobsActive bool) handlers.HealthDeps {
	d := handlers.HealthDeps{
		DB:         a.pool,
		JobsActive: jobsActive,
		Search:     a.search,
		Version:    Version,
		GitCommit:  GitCommit,
	}
	if a.redis != nil {
		d.Redis = a.redis
	}
	return d
}

func (a *app) close() {
	if a.meili != nil {
		a.meili.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("redis close")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
