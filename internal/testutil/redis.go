//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance, from
// GENIE_TEST_REDIS_ADDR. Empty means no test Redis is configured.
func RedisAddr() string {
	return os.Getenv("GENIE_TEST_REDIS_ADDR")
}

// SkipIfNoRedis skips the test if the test Redis is not reachable.
func SkipIfNoRedis(t *testing.T) string {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set GENIE_TEST_REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
	return addr
}

// FlushKey deletes a single key on the test Redis instance.
func FlushKey(t *testing.T, addr, key string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Del(context.Background(), key).Err(); err != nil {
		t.Fatalf("deleting %s: %v", key, err)
	}
}

// KeyLen returns the length of a Redis list key.
func KeyLen(t *testing.T, addr, key string) int64 {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	n, err := client.LLen(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("reading length of %s: %v", key, err)
	}
	return n
}
