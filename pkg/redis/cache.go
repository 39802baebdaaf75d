package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if err != nil {
		// Key not found is not an error
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it. dest is always
// filled from fn's value; a failed cache write only costs the next lookup.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	// Try cache first
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	// Cache miss - call function
	value, err := fn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal failed: %w", err)
	}

	// Store in cache (best effort)
	if c.client.Enabled() {
		_ = c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
	}
	return nil
}

// DeletePattern removes every cached value whose key matches pattern
// (Redis glob syntax, without the cache prefix)
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if !c.client.Enabled() {
		return nil
	}

	iter := c.client.Redis().Scan(ctx, 0, c.fullKey(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Redis().Del(ctx, keys...).Err()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 최근 실행 목록
	TTLMedium = 10 * time.Minute // 실행 요약
	TTLLong   = 1 * time.Hour    // 완료된 실행
)

// Common cache key generators
func RunSummaryKey(runID string) string {
	return fmt.Sprintf("quality:run:%s", runID)
}

func RunListKey(limit int) string {
	return fmt.Sprintf("quality:runs:%d", limit)
}

// RunListPattern matches every RunListKey
const RunListPattern = "quality:runs:*"
