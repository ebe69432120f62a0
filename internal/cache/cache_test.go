package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilientsys/degrade/pkg/errors"
)

// fakeRedis is an in-memory stand-in for the Redis client.
type fakeRedis struct {
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestResponseCacheRoundTrip(t *testing.T) {
	client := newFakeRedis()
	rc := NewResponseCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, rc.Put(ctx, "inference", map[string]interface{}{"answer": "42"}))

	value, err := rc.Get(ctx, "inference")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"answer": "42"}, value)

	// Keys are namespaced under the response prefix.
	_, ok := client.data["ai_response:inference"]
	assert.True(t, ok)
}

func TestResponseCacheMiss(t *testing.T) {
	rc := NewResponseCache(newFakeRedis(), time.Minute)

	_, err := rc.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
	assert.Equal(t, "CACHE_MISS", errors.GetCode(err))
}

func TestResponseCacheBackendFailure(t *testing.T) {
	client := newFakeRedis()
	client.err = fmt.Errorf("connection refused")
	rc := NewResponseCache(client, time.Minute)
	ctx := context.Background()

	assert.Error(t, rc.Put(ctx, "inference", "value"))

	_, err := rc.Get(ctx, "inference")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", errors.GetCode(err))
}

func TestSupplier(t *testing.T) {
	client := newFakeRedis()
	rc := NewResponseCache(client, time.Minute)
	ctx := context.Background()

	supplier := rc.Supplier("inference")

	_, err := supplier(ctx)
	assert.Error(t, err, "empty cache yields a miss")

	require.NoError(t, rc.Put(ctx, "inference", "stored answer"))
	value, err := supplier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored answer", value)
}
