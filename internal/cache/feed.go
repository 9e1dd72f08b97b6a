package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

const keyPrefix = "review:feed:"

// FeedCache caches the anonymous review feed per course in Redis.
// Authenticated feeds include the requester's own pending reviews and
// are never cached.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFeedCache creates a new Redis-backed feed cache.
func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cached feed for a course.
func (c *FeedCache) Get(ctx context.Context, courseID string) ([]*domain.ReviewTree, error) {
	key := keyPrefix + courseID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("feed", courseID)
		}
		return nil, fmt.Errorf("redis get feed: %w", err)
	}

	var feed []*domain.ReviewTree
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal feed: %w", err)
	}

	return feed, nil
}

// Set stores a course feed with the configured TTL.
func (c *FeedCache) Set(ctx context.Context, courseID string, feed []*domain.ReviewTree) error {
	key := keyPrefix + courseID

	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set feed: %w", err)
	}

	return nil
}

// Invalidate drops the cached feed for a course.
func (c *FeedCache) Invalidate(ctx context.Context, courseID string) error {
	key := keyPrefix + courseID

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del feed: %w", err)
	}

	return nil
}
