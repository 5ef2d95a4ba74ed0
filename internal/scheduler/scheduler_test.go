package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/jobs"
	"github.com/dukerupert/bizznex/internal/repository/memstore"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New(memstore.New(), Config{OverdueSpec: "every night"}, discard())
	assert.Error(t, err)
}

func TestEnqueueOverdue(t *testing.T) {
	store := memstore.New()
	s, err := New(store, Config{}, discard())
	require.NoError(t, err)

	s.enqueueOverdue()

	queued := store.BackgroundJobs()
	require.Len(t, queued, 1)
	assert.Equal(t, jobs.JobTypeMarkOverdueInvoices, queued[0].JobType)
	assert.Equal(t, jobs.QueueInvoicing, queued[0].Queue)
}

func TestRun_SchedulesDailySweep(t *testing.T) {
	s, err := New(memstore.New(), Config{Location: time.UTC}, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 5*time.Millisecond)
	next := s.Next()
	assert.Equal(t, 1, next.Hour())
	assert.Equal(t, 0, next.Minute())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestEnqueuePurge(t *testing.T) {
	store := memstore.New()
	s, err := New(store, Config{JobRetention: 7 * 24 * time.Hour}, discard())
	require.NoError(t, err)

	s.enqueuePurge()

	queued := store.BackgroundJobs()
	require.Len(t, queued, 1)
	assert.Equal(t, jobs.JobTypePurgeFinishedJobs, queued[0].JobType)
	assert.JSONEq(t, `{"retention_hours":168}`, string(queued[0].Payload))
}

func TestNew_RejectsBadPurgeSpec(t *testing.T) {
	_, err := New(memstore.New(), Config{PurgeSpec: "weekly-ish"}, discard())
	assert.Error(t, err)
}
