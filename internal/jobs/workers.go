package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/media"
)

// CompressVideoArgs asks for an uploaded video to be transcoded.
type CompressVideoArgs struct {
	MediaID string `json:"media_id"`
}

func (CompressVideoArgs) Kind() string { return JobKindCompressVideo }

func (CompressVideoArgs) InsertOpts() river.InsertOpts {
	opts := InsertOptsForKind(JobKindCompressVideo)
	opts.Queue = QueueMedia
	return opts
}

// VideoProcessor is the part of the media service the compression worker needs.
type VideoProcessor interface {
	CompressVideo(ctx context.Context, id string) (*media.Media, error)
	MarkFailed(ctx context.Context, id string) error
}

type CompressVideoWorker struct {
	river.WorkerDefaults[CompressVideoArgs]
	Media  VideoProcessor
	Logger zerolog.Logger
}

func (CompressVideoWorker) Kind() string { return JobKindCompressVideo }

// Timeout allows long transcodes; River's default is one minute.
func (CompressVideoWorker) Timeout(*river.Job[CompressVideoArgs]) time.Duration {
	return 30 * time.Minute
}

func (w CompressVideoWorker) Work(ctx context.Context, job *river.Job[CompressVideoArgs]) error {
	if w.Media == nil {
		return fmt.Errorf("media service not configured")
	}
	id := job.Args.MediaID
	if id == "" {
		return river.JobCancel(errors.New("media id is required"))
	}

	variant, err := w.Media.CompressVideo(ctx, id)
	if err == nil {
		w.Logger.Info().Str("media_id", id).Str("variant_id", variant.ID).Msg("video compression finished")
		return nil
	}

	// Missing or non-video media will never succeed.
	if errors.Is(err, content.ErrNotFound) || errors.Is(err, media.ErrNotVideo) {
		return river.JobCancel(err)
	}
	if job.Attempt >= job.MaxAttempts {
		if markErr := w.Media.MarkFailed(ctx, id); markErr != nil {
			w.Logger.Error().Err(markErr).Str("media_id", id).Msg("mark media failed")
		}
	}
	return err
}

// IndexContentArgs asks for one entity's search documents to be refreshed.
type IndexContentArgs struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (IndexContentArgs) Kind() string { return JobKindIndexContent }

func (IndexContentArgs) InsertOpts() river.InsertOpts {
	opts := InsertOptsForKind(JobKindIndexContent)
	opts.Queue = QueueSearch
	// Rapid successive edits collapse into one pending job.
	opts.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: 10 * time.Second}
	return opts
}

type Indexer interface {
	SyncEntity(ctx context.Context, typ, entityID string) error
}

type IndexContentWorker struct {
	river.WorkerDefaults[IndexContentArgs]
	Indexer Indexer
}

func (IndexContentWorker) Kind() string { return JobKindIndexContent }

func (w IndexContentWorker) Work(ctx context.Context, job *river.Job[IndexContentArgs]) error {
	if w.Indexer == nil {
		return fmt.Errorf("search indexer not configured")
	}
	if err := w.Indexer.SyncEntity(ctx, job.Args.Type, job.Args.ID); err != nil {
		return fmt.Errorf("index %s %s: %w", job.Args.Type, job.Args.ID, err)
	}
	return nil
}

// CleanupArgs defines the daily housekeeping job.
type CleanupArgs struct{}

func (CleanupArgs) Kind() string { return JobKindCleanup }

func (CleanupArgs) InsertOpts() river.InsertOpts { return InsertOptsForKind(JobKindCleanup) }

const (
	// InvitationRetention keeps expired invitations around for support questions.
	InvitationRetention = 30 * 24 * time.Hour
	// StaleProcessingAfter is how long a video may sit in processing before it
	// is considered abandoned.
	StaleProcessingAfter = 24 * time.Hour
)

// CleanupWorker removes expired invitations and fails media stuck in
// processing (for example after compression was disabled with jobs queued).
type CleanupWorker struct {
	river.WorkerDefaults[CleanupArgs]
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func (CleanupWorker) Kind() string { return JobKindCleanup }

func (w CleanupWorker) Work(ctx context.Context, job *river.Job[CleanupArgs]) error {
	if w.Pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	start := time.Now()

	const deleteInvitations = `
DELETE FROM user_invitations
WHERE accepted_at IS NULL AND expires_at < now() - make_interval(secs => $1)`
	invitations, err := w.Pool.Exec(ctx, deleteInvitations, InvitationRetention.Seconds())
	if err != nil {
		return fmt.Errorf("delete expired invitations: %w", err)
	}

	const failStale = `
UPDATE media SET status = 'failed', updated_at = now()
WHERE status = 'processing' AND updated_at < now() - make_interval(secs => $1)`
	stale, err := w.Pool.Exec(ctx, failStale, StaleProcessingAfter.Seconds())
	if err != nil {
		return fmt.Errorf("fail stale media: %w", err)
	}

	w.Logger.Info().
		Int64("invitations_deleted", invitations.RowsAffected()).
		Int64("media_failed", stale.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("cleanup finished")
	return nil
}

// Deps are the services workers call into.
type Deps struct {
	Pool    *pgxpool.Pool
	Media   VideoProcessor
	Indexer Indexer
	Logger  zerolog.Logger
}

// NewWorkers registers every worker. Workers whose dependency is missing are
// still registered so queued jobs fail loudly instead of sitting unworked.
func NewWorkers(deps Deps) *river.Workers {
	logger := deps.Logger.With().Str("component", "jobs").Logger()
	workers := river.NewWorkers()
	river.AddWorker[CompressVideoArgs](workers, CompressVideoWorker{Media: deps.Media, Logger: logger})
	river.AddWorker[IndexContentArgs](workers, IndexContentWorker{Indexer: deps.Indexer})
	river.AddWorker[CleanupArgs](workers, CleanupWorker{Pool: deps.Pool, Logger: logger})
	return workers
}
