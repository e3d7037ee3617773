package redis

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movers/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "movers")

	// When Redis is disabled, cache operations are no-ops
	require.NoError(t, cache.Set(ctx, "key", "value", TTLDaily))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, result)

	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_Key(t *testing.T) {
	cache := NewCache(disabledClient(t), "movers")
	assert.Equal(t, "movers:cache:snapshot:latest", cache.Key(SnapshotKey))
}

func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: addr}))
	defer client.Close()

	cache := NewCache(client, "movers-test")
	defer cache.Delete(ctx, "roundtrip")

	type payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, cache.Set(ctx, "roundtrip", payload{Code: "2330"}, TTLNone))

	var got payload
	found, err := cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2330", got.Code)

	require.NoError(t, cache.Delete(ctx, "roundtrip"))
	found, err = cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
