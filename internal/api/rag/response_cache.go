package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/rueidis"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// ResponseCache stores complete answers keyed by query fingerprint. Misses
// and backend failures both read as "not found" so a degraded cache never
// takes the pipeline down with it.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (*types.RAGAnswer, bool)
	Set(ctx context.Context, fingerprint string, answer *types.RAGAnswer)
}

// memoryCache is the default single-process cache.
type memoryCache struct {
	cache *gocache.Cache
}

var _ ResponseCache = (*memoryCache)(nil)

// NewMemoryCache creates an in-process response cache with the given TTL.
func NewMemoryCache(ttl time.Duration) ResponseCache {
	return &memoryCache{cache: gocache.New(ttl, ttl/2)}
}

func (c *memoryCache) Get(_ context.Context, fingerprint string) (*types.RAGAnswer, bool) {
	if v, found := c.cache.Get(fingerprint); found {
		if answer, ok := v.(*types.RAGAnswer); ok {
			return answer, true
		}
	}
	return nil, false
}

func (c *memoryCache) Set(_ context.Context, fingerprint string, answer *types.RAGAnswer) {
	c.cache.Set(fingerprint, answer, gocache.DefaultExpiration)
}

// redisCache shares the response cache across replicas.
type redisCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ResponseCache = (*redisCache)(nil)

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(client rueidis.Client, ttl time.Duration, logger *slog.Logger) ResponseCache {
	return &redisCache{client: client, ttl: ttl, logger: logger}
}

func cacheRedisKey(fingerprint string) string {
	return fmt.Sprintf("rag:answer:%s", fingerprint)
}

func (c *redisCache) Get(ctx context.Context, fingerprint string) (*types.RAGAnswer, bool) {
	cmd := c.client.B().Get().Key(cacheRedisKey(fingerprint)).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.WarnContext(ctx, "Response cache read failed", slog.Any("error", err))
		}
		return nil, false
	}

	var answer types.RAGAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.WarnContext(ctx, "Response cache entry is corrupt", slog.Any("error", err))
		return nil, false
	}
	return &answer, true
}

func (c *redisCache) Set(ctx context.Context, fingerprint string, answer *types.RAGAnswer) {
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to marshal answer for cache", slog.Any("error", err))
		return
	}
	cmd := c.client.B().Set().Key(cacheRedisKey(fingerprint)).Value(string(data)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.WarnContext(ctx, "Response cache write failed", slog.Any("error", err))
	}
}
