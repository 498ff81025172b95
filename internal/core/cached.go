package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/observability"
)

// ResultCache is the subset of the Redis cache the services need.
// *cache.Cache satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// cachedOutcome serves key from c when present and otherwise calls produce.
// Only model answers are written back; fallbacks are recomputed next time.
// A nil cache or a cache error degrades to calling produce.
func cachedOutcome[T any](
	ctx context.Context,
	c ResultCache,
	ttl time.Duration,
	log *zap.Logger,
	key string,
	produce func() Outcome[T],
) Outcome[T] {
	if c == nil {
		return produce()
	}

	var hit T
	found, err := c.Get(ctx, key, &hit)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues("error").Inc()
		log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	case found:
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return Outcome[T]{Value: hit, Source: SourceModel}
	default:
		observability.CacheLookups.WithLabelValues("miss").Inc()
	}

	out := produce()
	if !out.IsFallback() {
		if err := c.Set(ctx, key, out.Value, ttl); err != nil {
			log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out
}
