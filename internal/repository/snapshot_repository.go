package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// DefaultSnapshotKey is where the live timetable is stored when no key is configured.
const DefaultSnapshotKey = "timetable:snapshot"

// SnapshotRepository keeps a JSON copy of the live timetable in Redis so it
// survives restarts. A nil client turns every call into a no-op (or a miss).
type SnapshotRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotRepository constructs a snapshot repository. A zero ttl keeps the key forever.
func NewSnapshotRepository(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *SnapshotRepository {
	if key == "" {
		key = DefaultSnapshotKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotRepository{client: client, key: key, ttl: ttl, logger: logger}
}

// Save overwrites the stored snapshot. An empty snapshot removes the key.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot models.TimetableSnapshot) error {
	if r.client == nil {
		return nil
	}
	if snapshot.IsEmpty() {
		return r.Delete(ctx)
	}
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal timetable snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	r.logger.Debug("timetable snapshot saved", zap.String("key", r.key), zap.Uint64("version", snapshot.Version), zap.Int("sessions", len(snapshot.Sessions)))
	return nil
}

// Load returns the stored snapshot or appErrors.ErrCacheMiss when there is none.
func (r *SnapshotRepository) Load(ctx context.Context) (*models.TimetableSnapshot, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var snapshot models.TimetableSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal timetable snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete drops the stored snapshot.
func (r *SnapshotRepository) Delete(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *SnapshotRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
