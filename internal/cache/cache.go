// Package cache provides the Redis-backed response store that feeds the AI
// fallback chain's cached-response stage.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/errors"
)

// PrefixResponse namespaces cached AI responses in Redis.
const PrefixResponse = "ai_response"

// Client is the subset of *redis.Client the cache uses; narrowed so tests
// can substitute a fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ResponseCache stores the most recent successful AI responses so they can
// be replayed while the inference service is degraded or offline.
type ResponseCache struct {
	client Client
	ttl    time.Duration
}

// NewResponseCache creates a response cache with the given TTL. A zero TTL
// defaults to one hour.
func NewResponseCache(client Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixResponse, id)
}

// Put stores a response under the given identifier.
func (rc *ResponseCache) Put(ctx context.Context, id string, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return errors.NewInternalError("failed to serialize cached response").WithCause(err)
	}

	if err := rc.client.Set(ctx, cacheKey(id), data, rc.ttl).Err(); err != nil {
		return errors.NewInternalError("failed to store cached response").WithCause(err)
	}
	return nil
}

// Get retrieves a previously stored response. A missing key is an
// ErrorTypeUnavailable error, which the fallback chain treats as "no cached
// response" and moves past.
func (rc *ResponseCache) Get(ctx context.Context, id string) (interface{}, error) {
	data, err := rc.client.Get(ctx, cacheKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.NewAppError(errors.ErrorTypeUnavailable, "CACHE_MISS", "no cached response")
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to read cached response").WithCause(err)
	}

	var response interface{}
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, errors.NewInternalError("failed to deserialize cached response").WithCause(err)
	}
	return response, nil
}

// Supplier adapts the cache into the controller's cached-response stage for
// a fixed identifier.
func (rc *ResponseCache) Supplier(id string) degradation.Fallback {
	return func(ctx context.Context) (interface{}, error) {
		return rc.Get(ctx, id)
	}
}
