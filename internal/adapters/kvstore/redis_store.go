package kvstore

import (
	"commute-area-service/internal/platform/obs"
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore keeps values as plain Redis strings, optionally under a key prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the connection.
func NewRedisStoreFromURL(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "redis store: parse url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "redis store: ping")
	}
	return NewRedisStore(client, prefix), nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "kvstore.redis.Get")(&err)

	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "get redis store: key=%q", key)
	}
	return b, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) (err error) {
	defer obs.Time(ctx, "kvstore.redis.Put")(&err)

	if key == "" {
		return eris.New("put redis store: key must not be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return eris.Wrapf(err, "put redis store: key=%q", key)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (err error) {
	defer obs.Time(ctx, "kvstore.redis.Delete")(&err)

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return eris.Wrapf(err, "delete redis store: key=%q", key)
	}
	return nil
}
