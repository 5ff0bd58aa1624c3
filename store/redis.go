package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/redis/go-redis/v9"
)

type RedisProfileStore struct {
	client *redis.Client
	key    string
}

func NewRedisProfileStore(client *redis.Client, key string) *RedisProfileStore {
	return &RedisProfileStore{
		client: client,
		key:    key,
	}
}

func (s *RedisProfileStore) Load(ctx context.Context) (*types.UserProfile, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decode(data)
}

// Save stores the profile without a TTL. Expiry is enforced by the session
// watchdog from the profile's own exp.
func (s *RedisProfileStore) Save(ctx context.Context, profile types.UserProfile) error {
	data, err := encode(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisProfileStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisProfileStore) Shutdown(ctx context.Context) error {
	return s.client.Close()
}
