package store

import (
	"os"
	"testing"

	redis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// newTestRedisBackend connects to the Redis instance named by the
// KV_REDIS_ADDR environment variable, skipping the test when none is
// available. The backend is cleaned before and after the test.
func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()

	addr := os.Getenv("KV_REDIS_ADDR")
	if addr == "" {
		t.Skip("KV_REDIS_ADDR not set; skipping redis backend tests")
	}

	backend, err := NewRedisBackend(&redis.Options{
		Addr: addr,
		DB:   15,
	})
	require.NoError(t, err, "connecting to redis must succeed")

	require.NoError(t, backend.Clean())

	t.Cleanup(func() {
		_ = backend.Clean()
		_ = backend.Close()
	})

	return backend
}

// TestRedisBackend_Contract runs the shared backend contract against redis.
func TestRedisBackend_Contract(t *testing.T) {
	backend := newTestRedisBackend(t)

	runBackendContract(t, backend)
}
