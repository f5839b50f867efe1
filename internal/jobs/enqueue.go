package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/search"
)

// Inserter is satisfied by *river.Client.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Enqueuer turns domain events into River jobs. It implements
// media.Enqueuer and content.Notifier.
type Enqueuer struct {
	client Inserter
	logger zerolog.Logger
}

func NewEnqueuer(client Inserter, logger zerolog.Logger) *Enqueuer {
	return &Enqueuer{client: client, logger: logger.With().Str("component", "jobs").Logger()}
}

func (e *Enqueuer) EnqueueCompression(ctx context.Context, mediaID string) error {
	if _, err := e.client.Insert(ctx, CompressVideoArgs{MediaID: mediaID}, nil); err != nil {
		return fmt.Errorf("enqueue compression: %w", err)
	}
	return nil
}

// Notify schedules a search index refresh for searchable content. Failures
// are logged; the write that triggered them has already committed.
func (e *Enqueuer) Notify(ctx context.Context, change content.Change) {
	if !search.ValidType(change.Type) {
		return
	}
	if _, err := e.client.Insert(ctx, IndexContentArgs{Type: change.Type, ID: change.ID}, nil); err != nil {
		e.logger.Error().Err(err).
			Str("type", change.Type).
			Str("id", change.ID).
			Msg("enqueue search indexing failed")
	}
}
