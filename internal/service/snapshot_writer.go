package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const snapshotJobSave = "snapshot.save"

// SnapshotWriter moves snapshot writes off the request path through a
// single-worker queue. A job is skipped once a snapshot with a higher
// timetable version has been enqueued, so the store converges on the latest
// state even when retries reorder delivery. Loads go straight to the store.
type SnapshotWriter struct {
	store   snapshotStore
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger

	mu     sync.Mutex
	latest uint64
	sent   uint64
}

// NewSnapshotWriter builds a writer over store. Call Start before use and
// Close on shutdown to flush pending writes.
func NewSnapshotWriter(store snapshotStore, metrics *MetricsService, logger *zap.Logger, retries int, retryDelay time.Duration) *SnapshotWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &SnapshotWriter{store: store, metrics: metrics, logger: logger}
	w.queue = jobs.NewQueue("snapshots", w.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 16,
		MaxRetries: retries,
		RetryDelay: retryDelay,
		Logger:     logger,
	})
	return w
}

// Start launches the worker.
func (w *SnapshotWriter) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Close flushes queued writes until ctx expires.
func (w *SnapshotWriter) Close(ctx context.Context) error {
	return w.queue.Close(ctx)
}

// Save enqueues snapshot for persistence. An empty snapshot clears the store.
func (w *SnapshotWriter) Save(ctx context.Context, snapshot models.TimetableSnapshot) error {
	err := w.queue.Enqueue(jobs.Job{
		ID:      strconv.FormatUint(snapshot.Version, 10),
		Type:    snapshotJobSave,
		Payload: snapshot,
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	if snapshot.Version > w.latest {
		w.latest = snapshot.Version
	}
	w.mu.Unlock()
	return nil
}

// Load reads the stored snapshot synchronously.
func (w *SnapshotWriter) Load(ctx context.Context) (*models.TimetableSnapshot, error) {
	return w.store.Load(ctx)
}

func (w *SnapshotWriter) handle(ctx context.Context, job jobs.Job) error {
	snapshot, ok := job.Payload.(models.TimetableSnapshot)
	if !ok {
		return nil
	}
	w.mu.Lock()
	stale := snapshot.Version < w.latest
	w.mu.Unlock()
	if stale {
		w.logger.Debug("skipping superseded snapshot write", zap.String("job_id", job.ID), zap.Uint64("version", snapshot.Version))
		return nil
	}

	op := "persist_save"
	if snapshot.IsEmpty() {
		op = "persist_delete"
	}
	err := w.store.Save(ctx, snapshot)
	w.metrics.RecordSnapshot(op, err)
	if err == nil {
		w.mu.Lock()
		if snapshot.Version > w.sent {
			w.sent = snapshot.Version
		}
		w.mu.Unlock()
	}
	return err
}

// Persisted reports the timetable version of the newest snapshot the store
// has acknowledged and of the newest one enqueued.
func (w *SnapshotWriter) Persisted() (persisted, enqueued uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sent, w.latest
}
