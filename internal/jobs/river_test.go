package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextRetry(t *testing.T) {
	policy := NewRetryPolicy()
	now := time.Now()

	tests := []struct {
		name    string
		kind    string
		attempt int
		delay   time.Duration
	}{
		{name: "cleanup retries immediately", kind: JobKindCleanup, attempt: 1, delay: 0},
		{name: "index first attempt", kind: JobKindIndexContent, attempt: 1, delay: 10 * time.Second},
		{name: "index third attempt", kind: JobKindIndexContent, attempt: 3, delay: 40 * time.Second},
		{name: "compress second attempt", kind: JobKindCompressVideo, attempt: 2, delay: 2 * time.Minute},
		{name: "compress capped", kind: JobKindCompressVideo, attempt: 10, delay: 30 * time.Minute},
		{name: "unknown kind uses default", kind: "other", attempt: 1, delay: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: tt.kind, Attempt: tt.attempt, AttemptedAt: &now}
			if tt.delay == 0 {
				require.WithinDuration(t, time.Now(), policy.NextRetry(job), time.Second)
				return
			}
			require.Equal(t, tt.delay, policy.NextRetry(job).Sub(now))
		})
	}
}

func TestInsertOptsForKind(t *testing.T) {
	require.Equal(t, CompressVideoMaxAttempts, InsertOptsForKind(JobKindCompressVideo).MaxAttempts)
	require.Equal(t, IndexContentMaxAttempts, InsertOptsForKind(JobKindIndexContent).MaxAttempts)
	require.Equal(t, CleanupMaxAttempts, InsertOptsForKind(JobKindCleanup).MaxAttempts)
	require.Equal(t, IndexContentMaxAttempts, InsertOptsForKind("unknown").MaxAttempts)
}

func TestArgsRouteToQueues(t *testing.T) {
	require.Equal(t, QueueMedia, CompressVideoArgs{}.InsertOpts().Queue)
	require.Equal(t, QueueSearch, IndexContentArgs{}.InsertOpts().Queue)
	require.True(t, IndexContentArgs{}.InsertOpts().UniqueOpts.ByArgs)
	require.Equal(t, CompressVideoMaxAttempts, CompressVideoArgs{}.InsertOpts().MaxAttempts)
	require.Equal(t, IndexContentMaxAttempts, IndexContentArgs{}.InsertOpts().MaxAttempts)
	require.Equal(t, CleanupMaxAttempts, CleanupArgs{}.InsertOpts().MaxAttempts)
}

func TestNewClientConfig(t *testing.T) {
	cfg := NewClientConfig(NewWorkers(Deps{Logger: zerolog.Nop()}), nil, zerolog.Nop(), nil, NewPeriodicJobs())
	require.Contains(t, cfg.Queues, QueueMedia)
	require.Equal(t, 1, cfg.Queues[QueueMedia].MaxWorkers)
	require.Len(t, cfg.PeriodicJobs, 1)
	require.NotNil(t, cfg.ErrorHandler)
}
