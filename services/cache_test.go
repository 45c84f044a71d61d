package services

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"conhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memCache is an in-memory Cache that records deletions.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, stderrors.New("connection refused")
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func TestEntityCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := newMemCache()
	cache := entityCache{cache: mem, ttl: time.Minute}

	post := models.Post{ID: primitive.NewObjectID(), Author: primitive.NewObjectID(), Text: "hello"}
	key := postKey(post.ID.Hex())

	var got models.Post
	if cache.load(ctx, key, &got) {
		t.Fatal("load should miss on an empty cache")
	}
	cache.store(ctx, key, post)
	if !cache.load(ctx, key, &got) {
		t.Fatal("load should hit after store")
	}
	if got.ID != post.ID || got.Author != post.Author || got.Text != post.Text {
		t.Fatalf("cached post = %+v, want %+v", got, post)
	}

	cache.invalidate(ctx, key)
	if mem.has(key) {
		t.Fatal("invalidate should remove the key")
	}
}

func TestEntityCacheSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	mem := newMemCache()
	mem.failGet = true
	cache := entityCache{cache: mem}

	var user models.User
	if cache.load(ctx, userKey("x"), &user) {
		t.Fatal("a failing cache must report a miss")
	}

	mem.failGet = false
	mem.entries[userKey("y")] = []byte("{not json")
	if cache.load(ctx, userKey("y"), &user) {
		t.Fatal("a corrupt entry must report a miss")
	}
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = NopCache{}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !stderrors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get err = %v, want ErrCacheMiss", err)
	}
}
