package interfaces

import (
	"context"
	"time"

	"greenloop/internal/models"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// SnapshotStore is the port in front of the cached leaderboard artifact.
// Load reports when the snapshot was stored so callers can decide staleness;
// a miss is signalled with caching.ErrCacheMiss semantics (cache.ErrCacheMiss).
type SnapshotStore interface {
	Load(ctx context.Context) (*models.Snapshot, time.Time, error)
	Store(ctx context.Context, snapshot *models.Snapshot) error
	Invalidate(ctx context.Context) error
}
