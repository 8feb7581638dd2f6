package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the history array is stored under.
const DefaultRedisKey = "pdftl:history"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	URL      string // e.g. redis://localhost:6379/0
	Key      string // defaults to DefaultRedisKey
	MaxItems int    // defaults to DefaultMaxItems
	Logger   *slog.Logger
	Now      func() time.Time
}

// RedisStore keeps history as a JSON array under a single Redis key, so that
// several machines can share one reading list. Writes are serialized per
// process only.
type RedisStore struct {
	*listStore
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, wrapErr("open", fmt.Errorf("invalid redis url: %w", err))
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, wrapErr("open", fmt.Errorf("redis connection failed: %w", err))
	}

	return NewRedisStoreFromClient(client, cfg), nil
}

// NewRedisStoreFromClient wraps an existing client. cfg.URL is ignored.
func NewRedisStoreFromClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		listStore: newListStore(redisBlob{client: client, key: key}, cfg.MaxItems, cfg.Now, cfg.Logger),
		client:    client,
	}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisBlob struct {
	client *redis.Client
	key    string
}

func (b redisBlob) load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (b redisBlob) save(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, b.key, string(data), 0).Err()
}

func (b redisBlob) clear(ctx context.Context) error {
	return b.client.Del(ctx, b.key).Err()
}
