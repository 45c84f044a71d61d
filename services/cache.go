package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"conhub/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = stderrors.New("cache miss")

// Cache is the read-through store in front of MongoDB for single-entity
// GETs. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache stores entries as plain string keys with a TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return value, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// NopCache is used when Redis is not configured; every read misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, ...string) error { return nil }

func userKey(id string) string       { return "user:" + id }
func postKey(id string) string       { return "post:" + id }
func conventionKey(id string) string { return "convention:" + id }

// entityCache wraps a Cache with JSON encoding. Cache failures are logged
// and never returned.
type entityCache struct {
	cache Cache
	ttl   time.Duration
}

func (c entityCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, ErrCacheMiss) {
			logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached entry")
		return false
	}
	return true
}

func (c entityCache) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache entry")
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (c entityCache) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		logger.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}

// cachedKeys looks up the documents in col matching filter and returns
// their cache keys. Call it before a multi-document write whose filter the
// write itself stops matching. Lookup failures are logged and yield no keys.
func cachedKeys(ctx context.Context, col *mongo.Collection, filter bson.M, key func(string) string) []string {
	cursor, err := col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		logger.Warn().Err(err).Str("collection", col.Name()).Msg("Failed to look up cached documents")
		return nil
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Warn().Err(err).Str("collection", col.Name()).Msg("Failed to look up cached documents")
		return nil
	}
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		keys = append(keys, key(doc.ID.Hex()))
	}
	return keys
}
