package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samtoma/Headhunter-sub000/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

// TestRedisCache runs every RedisCache operation against one container.
func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, rc.Ping(ctx))
	})

	t.Run("profile page roundtrip", func(t *testing.T) {
		key := cache.ProfilePageKey(1, uuid.NewString())
		page := []byte(`[{"id":1,"name":"Ada"}]`)

		require.NoError(t, rc.Set(ctx, key, page, 10*time.Second))

		val, found, err := rc.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, page, val)
	})

	t.Run("missing page", func(t *testing.T) {
		val, found, err := rc.Get(ctx, cache.ProfilePageKey(99, uuid.NewString()))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})

	t.Run("page expires after ttl", func(t *testing.T) {
		key := cache.JobsKey(time.Now().UnixNano())
		require.NoError(t, rc.Set(ctx, key, []byte(`[]`), time.Second))

		_, found, err := rc.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)

		assert.Eventually(t, func() bool {
			_, found, err := rc.Get(ctx, key)
			return err == nil && !found
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("delete", func(t *testing.T) {
		key := cache.JobsKey(-1)
		require.NoError(t, rc.Set(ctx, key, []byte(`[]`), 10*time.Second))

		require.NoError(t, rc.Delete(ctx, key))

		_, found, err := rc.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("unset generation is zero", func(t *testing.T) {
		gen, err := rc.Generation(ctx, "gen:"+uuid.NewString())
		require.NoError(t, err)
		assert.Equal(t, int64(0), gen)
	})

	t.Run("bump generation", func(t *testing.T) {
		key := "gen:" + uuid.NewString()

		for want := int64(1); want <= 2; want++ {
			v, err := rc.BumpGeneration(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}

		gen, err := rc.Generation(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), gen)
	})

	t.Run("rate counter counts within the window", func(t *testing.T) {
		key := cache.RateLimitKey("10.1.0." + uuid.NewString()[:4])

		for want := int64(1); want <= 3; want++ {
			v, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}
	})

	t.Run("rate counter resets after the window", func(t *testing.T) {
		key := cache.RateLimitKey("10.2.0." + uuid.NewString()[:4])
		_, err := rc.IncrWithExpiry(ctx, key, time.Second)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			_, found, err := rc.Get(ctx, key)
			return err == nil && !found
		}, 3*time.Second, 100*time.Millisecond)

		v, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})
}

// --- Cache Key Builders ---

func TestProfilePageKey(t *testing.T) {
	assert.Equal(t, "headhunter:profiles:7:abc123", cache.ProfilePageKey(7, "abc123"))
}

func TestJobsKey(t *testing.T) {
	assert.Equal(t, "headhunter:jobs:3", cache.JobsKey(3))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:10.0.0.1", cache.RateLimitKey("10.0.0.1"))
}

func TestKeyBuilders_GenerationSeparatesPages(t *testing.T) {
	keys := map[string]bool{
		cache.ProfilePageKey(1, "hash"): true,
		cache.ProfilePageKey(2, "hash"): true,
		cache.JobsKey(1):                true,
		cache.JobsKey(2):                true,
		cache.WriteGenerationKey:        true,
	}
	assert.Len(t, keys, 5, "all keys should be unique")
}
