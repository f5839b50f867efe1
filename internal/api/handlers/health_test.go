package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

// fakeDB answers the health queries by matching on the SQL text.
type fakeDB struct {
	pingErr    error
	version    int64
	dirty      bool
	migrateErr error
	activeJobs int64
}

func (f fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "schema_migrations"):
		return rowFunc(func(dest ...any) error {
			if f.migrateErr != nil {
				return f.migrateErr
			}
			*dest[0].(*int64) = f.version
			*dest[1].(*bool) = f.dirty
			return nil
		})
	case strings.Contains(sql, "river_job"):
		return rowFunc(func(dest ...any) error {
			*dest[0].(*int64) = f.activeJobs
			return nil
		})
	default:
		return rowFunc(func(dest ...any) error {
			if f.pingErr != nil {
				return f.pingErr
			}
			*dest[0].(*int) = 1
			return nil
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeSearch struct{ enabled, healthy bool }

func (f fakeSearch) Enabled() bool { return f.enabled }
func (f fakeSearch) Healthy() bool { return f.healthy }

func serveHealth(t *testing.T, deps HealthDeps) (int, HealthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHealthChecker(deps).Health().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var report HealthReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	return rec.Code, report
}

func TestHealth_AllHealthy(t *testing.T) {
	code, report := serveHealth(t, HealthDeps{
		DB:         fakeDB{version: 12, activeJobs: 3},
		JobsActive: true,
		Redis:      fakePinger{},
		Search:     fakeSearch{enabled: true, healthy: true},
		Version:    "1.0.0",
		GitCommit:  "abc123",
	})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "1.0.0", report.Version)
	assert.Equal(t, "abc123", report.GitCommit)
	for _, name := range []string{"database", "migrations", "job_queue", "redis", "search"} {
		assert.Equal(t, checkPass, report.Checks[name].Status, name)
	}
	assert.EqualValues(t, 12, report.Checks["migrations"].Details["version"])
}

func TestHealth_OptionalDependenciesDegrade(t *testing.T) {
	code, report := serveHealth(t, HealthDeps{
		DB:     fakeDB{version: 1},
		Redis:  fakePinger{err: errors.New("dial tcp: connection refused")},
		Search: fakeSearch{enabled: true, healthy: false},
	})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, checkWarn, report.Checks["job_queue"].Status)
	assert.Equal(t, checkWarn, report.Checks["redis"].Status)
	assert.Equal(t, checkWarn, report.Checks["search"].Status)
}

func TestHealth_DatabaseFailure(t *testing.T) {
	code, report := serveHealth(t, HealthDeps{
		DB: fakeDB{pingErr: errors.New("dial tcp 127.0.0.1:5432: connection refused"), migrateErr: errors.New("connection refused")},
	})

	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "Database connection refused", report.Checks["database"].Message)
}

func TestHealth_DirtyMigrations(t *testing.T) {
	code, report := serveHealth(t, HealthDeps{DB: fakeDB{version: 7, dirty: true}})

	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, checkFail, report.Checks["migrations"].Status)
}

func TestHealth_NoMigrationsApplied(t *testing.T) {
	_, report := serveHealth(t, HealthDeps{DB: fakeDB{migrateErr: pgx.ErrNoRows}})

	assert.Equal(t, checkFail, report.Checks["migrations"].Status)
	assert.Contains(t, report.Checks["migrations"].Message, "migrate up")
}

func TestHealth_ShuttingDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	NewHealthChecker(HealthDeps{DB: fakeDB{}}).Health().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "shutting_down")
}

func TestReadyz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthChecker(HealthDeps{DB: fakeDB{}}).Readyz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthChecker(HealthDeps{DB: fakeDB{pingErr: errors.New("boom")}}).Readyz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
