package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// StatusReport is the cached answer to a status lookup.
type StatusReport struct {
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
	ChunkCount   int    `json:"chunk_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// StatusCache keeps recent document-status answers in Redis so the status
// polling endpoint does not hammer MySQL. Writes to a document's status
// invalidate its entries directly.
type StatusCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewStatusCache(client *redisv9.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) Get(ctx context.Context, key string) (*StatusReport, bool, error) {
	raw, err := c.client.Get(ctx, c.cacheKey(key)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get status failed: %w", err)
	}

	var report StatusReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached status failed: %w", err)
	}
	return &report, true, nil
}

func (c *StatusCache) Set(ctx context.Context, key string, report StatusReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal status cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.cacheKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set status failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached entries for a document; both the id-keyed and
// the source-key-keyed entry must go when a status changes.
func (c *StatusCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, c.cacheKey(k))
		}
	}
	if len(full) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis invalidate status failed: %w", err)
	}
	return nil
}

func (c *StatusCache) cacheKey(key string) string {
	return "docflow:status:" + key
}
