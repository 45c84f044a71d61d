package services

import (
	"context"
	"fmt"
	"time"

	"conhub/config"
	"conhub/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections groups the MongoDB collections the services share.
type Collections struct {
	Users       *mongo.Collection
	Posts       *mongo.Collection
	Comments    *mongo.Collection
	Conventions *mongo.Collection
	Images      *mongo.Collection
}

func NewCollections(db *mongo.Database) Collections {
	return Collections{
		Users:       db.Collection("users"),
		Posts:       db.Collection("posts"),
		Comments:    db.Collection("comments"),
		Conventions: db.Collection("conventions"),
		Images:      db.Collection("images"),
	}
}

// Store owns the database and cache connections.
type Store struct {
	Mongo       *mongo.Client
	Collections Collections
	Redis       *redis.Client // nil when caching is disabled
}

// Connect dials MongoDB and, when configured, Redis, pinging both.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")

	store := &Store{
		Mongo:       client,
		Collections: NewCollections(client.Database(cfg.Mongo.Database)),
	}

	if cfg.Redis.Addr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, response caching disabled")
		return store, nil
	}
	store.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := store.Redis.Ping(connectCtx).Err(); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Connected to Redis")
	return store, nil
}

// Cache returns the Redis-backed cache, or a no-op cache without Redis.
func (s *Store) Cache() Cache {
	if s.Redis == nil {
		return NopCache{}
	}
	return NewRedisCache(s.Redis)
}

func (s *Store) Close(ctx context.Context) {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if err := s.Mongo.Disconnect(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to disconnect MongoDB")
	}
}
