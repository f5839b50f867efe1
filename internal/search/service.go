package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/i18n"
)

const (
	EngineMeili    = "meilisearch"
	EnginePostgres = "postgres"
)

// Service searches through the engine when it is healthy and through the
// store otherwise. engine may be nil when Meilisearch is not configured.
type Service struct {
	engine  Engine
	store   Store
	locales i18n.Set
	logger  zerolog.Logger
}

func NewService(engine Engine, store Store, locales i18n.Set, logger zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		store:   store,
		locales: locales,
		logger:  logger.With().Str("component", "search").Logger(),
	}
}

func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	q, err := q.Normalize()
	if err != nil {
		return Response{}, err
	}
	if s.engine != nil && s.engine.Healthy() {
		hits, err := s.engine.Search(ctx, q)
		if err == nil {
			return Response{Query: q.Text, Engine: EngineMeili, Hits: hits}, nil
		}
		s.logger.Warn().Err(err).Msg("meilisearch failed, falling back to postgres")
	}
	hits, err := s.store.Search(ctx, q)
	if err != nil {
		return Response{}, fmt.Errorf("postgres search: %w", err)
	}
	for i := range hits {
		hits[i].Snippet = snippet(hits[i].Snippet, q.Text, 160)
	}
	if hits == nil {
		hits = []Hit{}
	}
	return Response{Query: q.Text, Engine: EnginePostgres, Hits: hits}, nil
}

// Enabled reports whether an index is configured at all.
func (s *Service) Enabled() bool {
	return s.engine != nil
}

// Healthy reports engine reachability; without an engine the fallback is
// always available.
func (s *Service) Healthy() bool {
	return s.engine == nil || s.engine.Healthy()
}

// SyncEntity brings the index in line with the current state of one entity:
// stale translations are removed and published ones (re)indexed.
func (s *Service) SyncEntity(ctx context.Context, typ, entityID string) error {
	if s.engine == nil {
		return nil
	}
	docs, err := s.store.Documents(ctx, typ, entityID)
	if err != nil {
		return fmt.Errorf("load %s %s: %w", typ, entityID, err)
	}
	present := make(map[string]bool, len(docs))
	for _, d := range docs {
		present[d.ID] = true
	}
	var stale []string
	for _, locale := range s.locales.Supported {
		id := DocumentID(typ, entityID, locale)
		if !present[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.engine.Delete(ctx, stale); err != nil {
			return err
		}
	}
	return s.engine.Index(ctx, docs)
}

// Reindex pushes every published document to the engine.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.engine == nil {
		return 0, nil
	}
	docs, err := s.store.AllDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}
	const batch = 500
	for start := 0; start < len(docs); start += batch {
		end := min(start+batch, len(docs))
		if err := s.engine.Index(ctx, docs[start:end]); err != nil {
			return start, err
		}
	}
	s.logger.Info().Int("documents", len(docs)).Msg("search index rebuilt")
	return len(docs), nil
}
