package cache

import (
	"context"
	"time"
)

// Counter hands out fixed-window counters keyed by caller.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
