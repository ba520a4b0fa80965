package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
)

type RedisResetTokenStore struct {
	client redis.UniversalClient
}

func NewRedisResetTokenStore(client redis.UniversalClient) *RedisResetTokenStore {
	return &RedisResetTokenStore{client: client}
}

func (s *RedisResetTokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		observability.RecordResetTokenStore(ctx, "redis", "put", "error")
		return err
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		observability.RecordResetTokenStore(ctx, "redis", "put", "error")
		return err
	}
	observability.RecordResetTokenStore(ctx, "redis", "put", "success")
	return nil
}

func (s *RedisResetTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		observability.RecordResetTokenStore(ctx, "redis", "get", "miss")
		return "", false, nil
	}
	if err != nil {
		observability.RecordResetTokenStore(ctx, "redis", "get", "error")
		return "", false, err
	}
	observability.RecordResetTokenStore(ctx, "redis", "get", "hit")
	return v, true, nil
}

// Take runs PTTL and GETDEL in one MULTI/EXEC so no other client can read
// the entry in between.
func (s *RedisResetTokenStore) Take(ctx context.Context, key string) (string, time.Duration, bool, error) {
	var (
		ttl *redis.DurationCmd
		get *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ttl = pipe.PTTL(ctx, key)
		get = pipe.GetDel(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RecordResetTokenStore(ctx, "redis", "take", "error")
		return "", 0, false, err
	}
	v, err := get.Result()
	if errors.Is(err, redis.Nil) {
		observability.RecordResetTokenStore(ctx, "redis", "take", "miss")
		return "", 0, false, nil
	}
	if err != nil {
		observability.RecordResetTokenStore(ctx, "redis", "take", "error")
		return "", 0, false, err
	}
	observability.RecordResetTokenStore(ctx, "redis", "take", "hit")
	return v, ttl.Val(), true, nil
}

func (s *RedisResetTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		observability.RecordResetTokenStore(ctx, "redis", "delete", "error")
		return err
	}
	observability.RecordResetTokenStore(ctx, "redis", "delete", "success")
	return nil
}
