package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/productstore/backend/internal/redisx"
)

type RedisSessions struct{ RDB *redis.Client }

func (s *RedisSessions) key(token string) string {
	return fmt.Sprintf(redisx.KeySession, token)
}

func (s *RedisSessions) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.RDB.Set(ctx, s.key(token), userID, ttl).Err()
}

func (s *RedisSessions) Get(ctx context.Context, token string) (string, error) {
	v, err := s.RDB.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	return s.RDB.Del(ctx, s.key(token)).Err()
}
