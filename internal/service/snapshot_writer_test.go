package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type lockedSnapshotStore struct {
	mu       sync.Mutex
	current  *models.TimetableSnapshot
	failures int
	saves    int
	gate     chan struct{}
}

func (s *lockedSnapshotStore) Save(ctx context.Context, snapshot models.TimetableSnapshot) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("redis unavailable")
	}
	s.saves++
	if snapshot.IsEmpty() {
		s.current = nil
		return nil
	}
	s.current = &snapshot
	return nil
}

func (s *lockedSnapshotStore) Load(ctx context.Context) (*models.TimetableSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func snapshotOf(version uint64, ids ...string) models.TimetableSnapshot {
	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, models.Session{ID: id})
	}
	return models.TimetableSnapshot{Version: version, Sessions: sessions}
}

func TestSnapshotWriterRetriesUntilStored(t *testing.T) {
	store := &lockedSnapshotStore{failures: 2}
	metrics := NewMetricsService()
	w := NewSnapshotWriter(store, metrics, nil, 3, time.Millisecond)
	w.Start(context.Background())

	require.NoError(t, w.Save(context.Background(), snapshotOf(1, "s-1")))
	require.Eventually(t, func() bool {
		persisted, enqueued := w.Persisted()
		return persisted == enqueued
	}, time.Second, 5*time.Millisecond)

	loaded, err := w.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "s-1", loaded.Sessions[0].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.snapshotOps.WithLabelValues("persist_save", "error")))
	require.NoError(t, w.Close(context.Background()))
}

func TestSnapshotWriterSkipsSupersededWrites(t *testing.T) {
	store := &lockedSnapshotStore{gate: make(chan struct{})}
	w := NewSnapshotWriter(store, nil, nil, 1, time.Millisecond)
	w.Start(context.Background())
	ctx := context.Background()

	require.NoError(t, w.Save(ctx, snapshotOf(1, "first")))
	require.NoError(t, w.Save(ctx, snapshotOf(2, "second")))
	require.NoError(t, w.Save(ctx, snapshotOf(3, "third")))
	close(store.gate)
	require.NoError(t, w.Close(ctx))

	loaded, err := w.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "third", loaded.Sessions[0].ID)
	assert.LessOrEqual(t, store.saves, 2)
}

func TestSnapshotWriterSkipsOlderVersionEnqueuedLater(t *testing.T) {
	store := &lockedSnapshotStore{gate: make(chan struct{})}
	w := NewSnapshotWriter(store, nil, nil, 1, time.Millisecond)
	w.Start(context.Background())
	ctx := context.Background()

	require.NoError(t, w.Save(ctx, snapshotOf(5)))
	require.NoError(t, w.Save(ctx, snapshotOf(4, "moved")))
	close(store.gate)
	require.NoError(t, w.Close(ctx))

	loaded, err := w.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	persisted, enqueued := w.Persisted()
	assert.Equal(t, uint64(5), persisted)
	assert.Equal(t, uint64(5), enqueued)
}

func TestSnapshotWriterFailedEnqueueDoesNotSupersede(t *testing.T) {
	store := &lockedSnapshotStore{}
	w := NewSnapshotWriter(store, nil, nil, 1, time.Millisecond)
	ctx := context.Background()

	require.Error(t, w.Save(ctx, snapshotOf(5, "lost")))
	_, enqueued := w.Persisted()
	assert.Zero(t, enqueued)

	w.Start(ctx)
	require.NoError(t, w.Save(ctx, snapshotOf(2, "kept")))
	require.NoError(t, w.Close(ctx))

	loaded, err := w.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "kept", loaded.Sessions[0].ID)

	err = w.Save(ctx, snapshotOf(9, "late"))
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
	persisted, enqueued := w.Persisted()
	assert.Equal(t, uint64(2), persisted)
	assert.Equal(t, uint64(2), enqueued)
}

func TestSnapshotWriterEmptySnapshotClearsStore(t *testing.T) {
	store := &lockedSnapshotStore{}
	metrics := NewMetricsService()
	w := NewSnapshotWriter(store, metrics, nil, 1, time.Millisecond)
	w.Start(context.Background())
	ctx := context.Background()

	require.NoError(t, w.Save(ctx, snapshotOf(1, "s-1")))
	require.NoError(t, w.Save(ctx, snapshotOf(2)))
	require.NoError(t, w.Close(ctx))

	loaded, err := w.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.snapshotOps.WithLabelValues("persist_delete", "ok")))
}
