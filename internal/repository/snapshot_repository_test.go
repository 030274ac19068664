package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestSnapshotRepositoryWithoutClient(t *testing.T) {
	repo := NewSnapshotRepository(nil, "", 0, nil)
	ctx := context.Background()

	assert.Equal(t, DefaultSnapshotKey, repo.key)
	require.NoError(t, repo.Save(ctx, models.TimetableSnapshot{}))
	require.NoError(t, repo.Delete(ctx))
	require.NoError(t, repo.Ping(ctx))

	snapshot, err := repo.Load(ctx)
	assert.Nil(t, snapshot)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Close())
}

func TestSnapshotRepositoryWrapsRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewSnapshotRepository(client, "test:snapshot", time.Minute, nil)
	defer repo.Close()
	ctx := context.Background()

	err := repo.Save(ctx, models.TimetableSnapshot{Sessions: []models.Session{{ID: "s-1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set test:snapshot")

	err = repo.Save(ctx, models.TimetableSnapshot{Version: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis delete test:snapshot")

	_, err = repo.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Error(t, repo.Ping(ctx))
}
