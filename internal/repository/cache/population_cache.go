package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain/repository"
)

const populationsKey = "populations:wikidata"

type populationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewPopulationCache keeps population lookups in a Redis hash keyed by
// wikidata id, so concurrent pipeline runs share one cache.
func NewPopulationCache(redis *Redis, ttl time.Duration) repository.PopulationCache {
	return &populationCache{
		client: redis.Client(),
		ttl:    ttl,
		logger: redis.logger,
	}
}

func (r *populationCache) Load(ctx context.Context) (map[string]string, error) {
	populations, err := r.client.HGetAll(ctx, populationsKey).Result()
	if err != nil {
		r.logger.Error("Failed to load population cache", zap.Error(err))
		return nil, fmt.Errorf("cache load error: %w", err)
	}

	r.logger.Debug("Loaded population cache", zap.Int("entries", len(populations)))
	return populations, nil
}

func (r *populationCache) Store(ctx context.Context, populations map[string]string) error {
	if len(populations) == 0 {
		return nil
	}

	if err := r.client.HSet(ctx, populationsKey, populations).Err(); err != nil {
		r.logger.Error("Failed to store population cache", zap.Error(err))
		return fmt.Errorf("cache store error: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, populationsKey, r.ttl).Err(); err != nil {
			r.logger.Error("Failed to set cache TTL", zap.Error(err))
			return fmt.Errorf("cache expire error: %w", err)
		}
	}

	r.logger.Debug("Stored population cache",
		zap.Int("entries", len(populations)),
		zap.Duration("ttl", r.ttl))
	return nil
}
