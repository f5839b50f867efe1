package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vitrin-cms/server/internal/api"
	"github.com/vitrin-cms/server/internal/api/handlers"
	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/jobs"
	"github.com/vitrin-cms/server/internal/metrics"
	"github.com/vitrin-cms/server/internal/storage/postgres"
	"github.com/vitrin-cms/server/internal/telemetry"
)

var (
	// Server flags (override config/env)
	serverHost    string
	serverPort    int
	migrateOnBoot bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Vitrin HTTP server",
	Long: `Start the Vitrin HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Bootstrap an admin user if ADMIN_* env vars are set
- Start background job workers (video compression, search indexing, cleanup)
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply pending database migrations before serving
  server serve --migrate

  # Start with custom config file
  server serve --config /etc/vitrin/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
	serveCmd.Flags().BoolVar(&migrateOnBoot, "migrate", false, "apply database migrations before serving")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting vitrin server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if migrateOnBoot {
		if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	a, err := newApp(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := jobs.Migrate(startCtx, a.pool); err != nil {
		return err
	}

	bootstrapAdminUser(startCtx, a, logger)

	dbCollector := metrics.NewDBCollector(a.pool)
	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	go dbCollector.Start(collectorCtx, 15*time.Second)
	defer collectorCancel()
	defer dbCollector.Stop()

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	jobsActive := true
	if err := a.river.Start(riverCtx); err != nil {
		// The API still serves without workers; health reports the queue.
		logger.Error().Err(err).Msg("river workers failed to start")
		jobsActive = false
	} else {
		logger.Info().Msg("river background job workers started")
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := a.river.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
			} else {
				logger.Info().Msg("river workers stopped")
			}
		}()
	}

	health := handlers.NewHealthChecker(a.healthDeps(jobsActive))
	build := handlers.BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	handler := api.NewRouter(a.routerDeps(health, build))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       60 * time.Second, // uploads stream through the body
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

// bootstrapAdminUser creates the first administrator from ADMIN_* settings.
// Failures are logged and do not stop the server.
func bootstrapAdminUser(ctx context.Context, a *app, logger zerolog.Logger) {
	bootstrap := a.cfg.AdminBootstrap
	if bootstrap.Username == "" || bootstrap.Password == "" || bootstrap.Email == "" {
		logger.Debug().Msg("admin bootstrap env vars not fully set; skipping")
		return
	}

	created, err := a.users.EnsureAdmin(ctx, bootstrap.Username, bootstrap.Email, bootstrap.Password)
	if err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
		return
	}
	if !created {
		return
	}

	// Redact email in production to avoid PII in logs
	event := logger.Info().Str("username", bootstrap.Username)
	if a.cfg.Environment != "production" {
		event = event.Str("email", bootstrap.Email)
	}
	event.Msg("bootstrapped admin user")
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
