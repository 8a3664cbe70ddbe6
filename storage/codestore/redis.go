// Package codestore keeps the short-lived numeric check-in codes, one
// live code per lecture, expiring after the configured TTL.
package codestore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
)

type redisStore struct {
	client *redis.Client
}

var _ attendance.CodeStore = (*redisStore)(nil)

func NewRedisStore(conf *core.Config) (attendance.CodeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisStore{client: client}, nil
}

func key(lectureID int) string {
	return fmt.Sprintf("attendance:code:%d", lectureID)
}

func (s *redisStore) PutCode(ctx context.Context, lectureID int, code string, ttl time.Duration) error {
	return s.client.Set(ctx, key(lectureID), code, ttl).Err()
}

func (s *redisStore) GetCode(ctx context.Context, lectureID int) (string, error) {
	code, err := s.client.Get(ctx, key(lectureID)).Result()
	if err == redis.Nil {
		return "", attendance.ErrCodeNotIssued
	}
	return code, err
}
