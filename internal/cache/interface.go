package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get decodes the cached value into value and reports whether the key
	// was present.
	Get(ctx context.Context, key string, value interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	AnalyticsKeyPrefix = "analytics"
)

// DashboardKey holds the cached dashboard summary.
var DashboardKey = Key(AnalyticsKeyPrefix, "dashboard")
