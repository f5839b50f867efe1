// Package dashboard aggregates the counters shown on the admin home page.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/media"
)

// ContentTypes are the entities counted per type, in display order.
var ContentTypes = []string{
	content.TypeProduct, content.TypeBlog, content.TypeEvent,
	content.TypeTeam, content.TypeSlider, content.TypePage,
}

type Counts struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
}

type Summary struct {
	Content map[string]Counts `json:"content"`
	Media   media.Stats       `json:"media"`
	Users   int64             `json:"users"`
}

type Repository interface {
	CountContent(ctx context.Context, typ string) (Counts, error)
	CountUsers(ctx context.Context) (int64, error)
	MediaStats(ctx context.Context) (media.Stats, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Summary runs every count concurrently; the first failure cancels the rest.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	out := &Summary{Content: make(map[string]Counts, len(ContentTypes))}
	var mu sync.Mutex

	for _, typ := range ContentTypes {
		g.Go(func() error {
			counts, err := s.repo.CountContent(ctx, typ)
			if err != nil {
				return fmt.Errorf("count %s: %w", typ, err)
			}
			mu.Lock()
			out.Content[typ] = counts
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		stats, err := s.repo.MediaStats(ctx)
		if err != nil {
			return fmt.Errorf("media stats: %w", err)
		}
		out.Media = stats
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountUsers(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		out.Users = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
