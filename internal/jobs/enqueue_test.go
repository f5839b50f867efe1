package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
)

type recordingInserter struct {
	args []river.JobArgs
	err  error
}

func (r *recordingInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.args = append(r.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{Kind: args.Kind()}}, nil
}

func TestEnqueuerNotifyIndexesSearchableTypes(t *testing.T) {
	ins := &recordingInserter{}
	e := NewEnqueuer(ins, zerolog.Nop())

	e.Notify(context.Background(), content.Change{Type: content.TypeProduct, ID: "p1"})
	e.Notify(context.Background(), content.Change{Type: content.TypePage, ID: "pg1", Deleted: true})
	e.Notify(context.Background(), content.Change{Type: content.TypeTeam, ID: "t1"})
	e.Notify(context.Background(), content.Change{Type: content.TypeSlider, ID: "s1"})

	require.Equal(t, []river.JobArgs{
		IndexContentArgs{Type: content.TypeProduct, ID: "p1"},
		IndexContentArgs{Type: content.TypePage, ID: "pg1"},
	}, ins.args)
}

func TestEnqueuerNotifySwallowsErrors(t *testing.T) {
	e := NewEnqueuer(&recordingInserter{err: errors.New("db down")}, zerolog.Nop())
	require.NotPanics(t, func() {
		e.Notify(context.Background(), content.Change{Type: content.TypeBlog, ID: "b1"})
	})
}

func TestEnqueueCompression(t *testing.T) {
	ins := &recordingInserter{}
	e := NewEnqueuer(ins, zerolog.Nop())
	require.NoError(t, e.EnqueueCompression(context.Background(), "m1"))
	require.Equal(t, []river.JobArgs{CompressVideoArgs{MediaID: "m1"}}, ins.args)

	ins.err = errors.New("db down")
	require.ErrorContains(t, e.EnqueueCompression(context.Background(), "m2"), "enqueue compression")
}
