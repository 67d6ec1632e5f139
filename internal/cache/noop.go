package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Noop is used when no Redis URL is configured. Every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }

// Invalidator deletes a fixed set of keys whenever the underlying data
// changes. Failures are logged; the entries still expire by TTL.
type Invalidator struct {
	cache  Cache
	keys   []string
	logger *zap.Logger
}

func NewInvalidator(c Cache, logger *zap.Logger, keys ...string) *Invalidator {
	return &Invalidator{cache: c, keys: keys, logger: logger}
}

func (i *Invalidator) Invalidate(ctx context.Context) {
	for _, key := range i.keys {
		if err := i.cache.Delete(ctx, key); err != nil {
			i.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}
