package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/metrics"
)

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// conn is embedded by every repository. When tx is set all statements run
// inside it and nested transactions become savepoints.
type conn struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (c conn) queryer() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}

func (c conn) inTx(ctx context.Context, fn func(q queryer) error) error {
	tx, err := c.queryer().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repository hands out the per-domain repositories over one pool or one
// transaction.
type Repository struct {
	conn
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{conn: conn{pool: pool}}, nil
}

// NewPool opens a pgx pool sized from config and checks connectivity.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		poolCfg.MinConns = int32(min(cfg.MaxIdle, int(poolCfg.MaxConns)))
	}
	poolCfg.ConnConfig.Tracer = metrics.QueryTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

func (r *Repository) Products() *ProductRepository { return &ProductRepository{conn: r.conn} }
func (r *Repository) Blogs() *BlogRepository       { return &BlogRepository{conn: r.conn} }
func (r *Repository) Events() *EventRepository     { return &EventRepository{conn: r.conn} }
func (r *Repository) Team() *TeamRepository        { return &TeamRepository{conn: r.conn} }
func (r *Repository) Sliders() *SliderRepository   { return &SliderRepository{conn: r.conn} }
func (r *Repository) Pages() *PageRepository       { return &PageRepository{conn: r.conn} }
func (r *Repository) Menus() *MenuRepository       { return &MenuRepository{conn: r.conn} }
func (r *Repository) Settings() *SettingsRepository {
	return &SettingsRepository{conn: r.conn}
}
func (r *Repository) Media() *MediaRepository   { return &MediaRepository{conn: r.conn} }
func (r *Repository) Users() *UserRepository    { return &UserRepository{conn: r.conn} }
func (r *Repository) Search() *SearchRepository { return &SearchRepository{conn: r.conn} }
func (r *Repository) Dashboard() *DashboardRepository {
	return &DashboardRepository{conn: r.conn}
}

// WithTx runs fn against a Repository bound to a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Repository) error) error {
	return r.inTx(ctx, func(q queryer) error {
		tx, _ := q.(pgx.Tx)
		return fn(ctx, &Repository{conn: conn{pool: r.pool, tx: tx}})
	})
}

const uniqueViolation = "23505"

// uniqueViolationOn reports whether err is a unique violation, optionally
// restricted to constraints whose name contains one of the fragments.
func uniqueViolationOn(err error, fragments ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	if len(fragments) == 0 {
		return true
	}
	for _, f := range fragments {
		if strings.Contains(pgErr.ConstraintName, f) {
			return true
		}
	}
	return false
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// escapeLike quotes LIKE wildcards in user input.
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

// likePattern wraps escaped input for a contains match, or returns "" when
// there is nothing to match.
func likePattern(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return "%" + escapeLike(value) + "%"
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
