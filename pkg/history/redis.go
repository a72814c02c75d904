package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/config-genie/genie/pkg/util"
)

const (
	redisKey     = "genie:history"
	redisTimeout = 5 * time.Second
)

// RedisBackend keeps history in a capped Redis list, for teams that
// want shared history across operator workstations.
type RedisBackend struct {
	client *redis.Client
	// MaxEntries caps the list length; older records fall off. Zero
	// keeps everything.
	MaxEntries int64
}

// NewRedisBackend connects to Redis at addr ("host:port") and verifies
// the connection.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to history redis %s: %w", addr, err)
	}
	return &RedisBackend{client: client, MaxEntries: 10000}, nil
}

func (b *RedisBackend) Append(r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, redisKey, data)
	if b.MaxEntries > 0 {
		pipe.LTrim(ctx, redisKey, -b.MaxEntries, -1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Query(f Filter) ([]*Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	entries, err := b.client.LRange(ctx, redisKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var records []*Record
	for i, entry := range entries {
		var r Record
		if err := json.Unmarshal([]byte(entry), &r); err != nil {
			util.Warnf("history: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if f.matches(&r) {
			records = append(records, &r)
		}
	}
	return f.window(records), nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
