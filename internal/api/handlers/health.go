package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitrin-cms/server/internal/metrics"
)

const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"

	checkTimeout = 2 * time.Second
)

// HealthReport is the body of /health and /readyz.
type HealthReport struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

// RowQuerier is the slice of *pgxpool.Pool the database checks use.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type SearchStatus interface {
	Enabled() bool
	Healthy() bool
}

// HealthDeps lists what the checker probes. Nil optional dependencies are
// reported as warnings, never failures.
type HealthDeps struct {
	DB         RowQuerier
	JobsActive bool
	Redis      Pinger
	Search     SearchStatus
	Version    string
	GitCommit  string
}

type HealthChecker struct {
	deps HealthDeps
	now  func() time.Time
}

func NewHealthChecker(deps HealthDeps) *HealthChecker {
	return &HealthChecker{deps: deps, now: time.Now}
}

// Health serves the full dependency report. Any failing check answers 503.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "shutting_down"})
			return
		}
		report := h.Report(r.Context())
		status := http.StatusOK
		if report.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

// Report runs every check concurrently and records the results as gauges.
func (h *HealthChecker) Report(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) CheckResult{
		"database":   h.checkDatabase,
		"migrations": h.checkMigrations,
		"job_queue":  h.checkJobQueue,
		"redis":      h.checkRedis,
		"search":     h.checkSearch,
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := check(ctx)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	overall := "healthy"
	for name, result := range results {
		metrics.HealthCheckStatus.WithLabelValues(name).Set(checkGauge(result.Status))
		metrics.HealthCheckLatency.WithLabelValues(name).Set(float64(result.LatencyMs))
		switch {
		case result.Status == checkFail:
			overall = "unhealthy"
		case result.Status == checkWarn && overall == "healthy":
			overall = "degraded"
		}
	}
	switch overall {
	case "healthy":
		metrics.HealthStatus.Set(2)
	case "degraded":
		metrics.HealthStatus.Set(1)
	default:
		metrics.HealthStatus.Set(0)
	}

	return HealthReport{
		Status:    overall,
		Version:   h.deps.Version,
		GitCommit: h.deps.GitCommit,
		Checks:    results,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
}

func checkGauge(status string) float64 {
	switch status {
	case checkPass:
		return 2
	case checkWarn:
		return 1
	default:
		return 0
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.deps.DB == nil {
		return CheckResult{Status: checkFail, Message: "Database pool not initialized"}
	}
	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var one int
	err := h.deps.DB.QueryRow(dbCtx, "SELECT 1").Scan(&one)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database query failed"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			message = "Database query timed out"
		case strings.Contains(err.Error(), "connection refused"):
			message = "Database connection refused"
		case strings.Contains(err.Error(), "authentication failed"):
			message = "Database authentication failed"
		}
		return CheckResult{Status: checkFail, Message: message, LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}

	result := CheckResult{Status: checkPass, Message: "PostgreSQL connection successful", LatencyMs: latency}
	if pool, ok := h.deps.DB.(*pgxpool.Pool); ok {
		stats := pool.Stat()
		result.Details = map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		}
	}
	return result
}

// checkMigrations fails on a dirty schema; the exact version is informational.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.deps.DB == nil {
		return CheckResult{Status: checkFail, Message: "Database pool not initialized"}
	}
	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		version int64
		dirty   bool
	)
	err := h.deps.DB.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Failed to query migration version"
		if errors.Is(err, pgx.ErrNoRows) || strings.Contains(err.Error(), "does not exist") {
			message = "No migrations applied; run `server migrate up`"
		}
		return CheckResult{Status: checkFail, Message: message, LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}
	if dirty {
		return CheckResult{
			Status:    checkFail,
			Message:   "Database in dirty migration state; fix it with `server migrate force`",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   fmt.Sprintf("Migrations applied (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.deps.JobsActive || h.deps.DB == nil {
		return CheckResult{Status: checkWarn, Message: "Job queue not running"}
	}
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var active int64
	err := h.deps.DB.QueryRow(jobCtx, `SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`, []string{"available", "running"}).Scan(&active)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: checkFail, Message: "Failed to query job queue", LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": active},
	}
}

// checkRedis warns rather than fails: every cached path falls back to the database.
func (h *HealthChecker) checkRedis(ctx context.Context) CheckResult {
	if h.deps.Redis == nil {
		return CheckResult{Status: checkWarn, Message: "Redis not configured"}
	}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := h.deps.Redis.Ping(pingCtx); err != nil {
		return CheckResult{Status: checkWarn, Message: "Redis unreachable", LatencyMs: time.Since(start).Milliseconds(), Details: map[string]any{"error": err.Error()}}
	}
	return CheckResult{Status: checkPass, Message: "Redis reachable", LatencyMs: time.Since(start).Milliseconds()}
}

func (h *HealthChecker) checkSearch(context.Context) CheckResult {
	switch {
	case h.deps.Search == nil || !h.deps.Search.Enabled():
		return CheckResult{Status: checkWarn, Message: "Meilisearch not configured; using PostgreSQL search"}
	case !h.deps.Search.Healthy():
		return CheckResult{Status: checkWarn, Message: "Meilisearch unhealthy; using PostgreSQL search"}
	default:
		return CheckResult{Status: checkPass, Message: "Meilisearch healthy"}
	}
}

// Healthz is the liveness probe: the process is up and serving.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
}

// Readyz is the readiness probe. Only the database gates readiness.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if result := h.checkDatabase(r.Context()); result.Status != checkPass {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not_ready", Message: result.Message})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
