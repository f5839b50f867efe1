package postgres

import (
	"context"
	"fmt"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/dashboard"
	"github.com/vitrin-cms/server/internal/domain/media"
)

var _ dashboard.Repository = (*DashboardRepository)(nil)

type DashboardRepository struct {
	conn
}

var contentTables = map[string]string{
	content.TypeProduct: "products",
	content.TypeBlog:    "blog_posts",
	content.TypeEvent:   "events",
	content.TypeTeam:    "team_members",
	content.TypeSlider:  "sliders",
	content.TypePage:    "pages",
}

func (r *DashboardRepository) CountContent(ctx context.Context, typ string) (dashboard.Counts, error) {
	table, ok := contentTables[typ]
	if !ok {
		return dashboard.Counts{}, fmt.Errorf("unknown content type %q", typ)
	}
	var counts dashboard.Counts
	err := r.queryer().QueryRow(ctx, `
SELECT count(*), count(*) FILTER (WHERE status = 'published') FROM `+table).
		Scan(&counts.Total, &counts.Published)
	if err != nil {
		return dashboard.Counts{}, fmt.Errorf("count %s: %w", table, err)
	}
	return counts, nil
}

func (r *DashboardRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.queryer().QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *DashboardRepository) MediaStats(ctx context.Context) (media.Stats, error) {
	return (&MediaRepository{conn: r.conn}).Stats(ctx)
}
