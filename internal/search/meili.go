package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

// IndexName is the Meilisearch index holding every content document.
const IndexName = "vitrin_content"

const healthInterval = 10 * time.Second

var errUnhealthy = errors.New("meilisearch unhealthy")

// Meili implements Engine on Meilisearch. A background loop tracks
// reachability; settings are reapplied when the server comes back.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	logger  zerolog.Logger
}

func NewMeili(url, apiKey string, logger zerolog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "meilisearch").Logger(),
	}
	if _, err := m.client.Health(); err != nil {
		m.logger.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
	} else {
		m.healthy.Store(true)
		m.configure()
	}
	go m.healthLoop()
	return m
}

func (m *Meili) configure() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: IndexName, PrimaryKey: "id"}); err != nil {
		m.logger.Debug().Err(err).Msg("create index (may already exist)")
	}
	index := m.client.Index(IndexName)
	filterable := []interface{}{"type", "locale"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn().Err(err).Msg("update filterable attributes")
	}
	searchable := []string{"title", "text", "slug"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn().Err(err).Msg("update searchable attributes")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			was := m.healthy.Swap(err == nil)
			switch {
			case err == nil && !was:
				m.logger.Info().Msg("meilisearch recovered, reconfiguring index")
				m.configure()
			case err != nil && was:
				m.logger.Warn().Err(err).Msg("meilisearch became unavailable")
			}
		}
	}
}

// Close stops the health loop.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Hit, error) {
	if !m.healthy.Load() {
		return nil, errUnhealthy
	}
	req := &meili.SearchRequest{
		IndexUID:              IndexName,
		Query:                 q.Text,
		Limit:                 int64(q.Limit),
		AttributesToHighlight: []string{"title"},
		AttributesToCrop:      []string{"text"},
		CropLength:            30,
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	var filters []string
	if q.Locale != "" {
		filters = append(filters, fmt.Sprintf("locale = %q", q.Locale))
	}
	if q.Type != "" {
		filters = append(filters, fmt.Sprintf("type = %q", q.Type))
	}
	if len(filters) > 0 {
		req.Filter = filters
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{req}})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}
	hits := []Hit{}
	for _, result := range resp.Results {
		for _, h := range result.Hits {
			hits = append(hits, hitFromMeili(h))
		}
	}
	return hits, nil
}

func hitFromMeili(hit meili.Hit) Hit {
	return Hit{
		Type:     decodeString(hit, "type"),
		EntityID: decodeString(hit, "entity_id"),
		Locale:   decodeString(hit, "locale"),
		Slug:     decodeString(hit, "slug"),
		Title:    decodeString(hit, "title"),
		Snippet:  decodeFormatted(hit, "text"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeFormatted(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func (m *Meili) Index(_ context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if !m.healthy.Load() {
		return errUnhealthy
	}
	if _, err := m.client.Index(IndexName).AddDocuments(docs, nil); err != nil {
		return fmt.Errorf("meilisearch add documents: %w", err)
	}
	return nil
}

func (m *Meili) Delete(_ context.Context, ids []string) error {
	if !m.healthy.Load() {
		return errUnhealthy
	}
	index := m.client.Index(IndexName)
	for _, id := range ids {
		if _, err := index.DeleteDocument(id, nil); err != nil {
			return fmt.Errorf("meilisearch delete %s: %w", id, err)
		}
	}
	return nil
}
