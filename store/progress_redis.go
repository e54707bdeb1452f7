package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

// RedisProgressStore keeps one ProgressRecord per user id in redis.
// Live records carry a long safety TTL so an abandoned process never
// leaks keys; terminal records are rewritten with the short retention
// window, after which the key expires and pollers see "idle" again.
type RedisProgressStore struct {
	client  *RedisClient
	liveTTL time.Duration
}

func NewRedisProgressStore(client *RedisClient) *RedisProgressStore {
	return &RedisProgressStore{
		client:  client,
		liveTTL: time.Hour,
	}
}

func (s *RedisProgressStore) recordKey(userID int64) string {
	return s.client.key("progress", fmt.Sprintf("%d", userID))
}

func (s *RedisProgressStore) Set(userID int64, rec *types.ProgressRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.recordKey(userID), rec, s.liveTTL)
}

func (s *RedisProgressStore) Get(userID int64) (*types.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var rec types.ProgressRecord
	if err := s.client.Get(ctx, s.recordKey(userID), &rec); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *RedisProgressStore) SetTerminal(userID int64, rec *types.ProgressRecord, retention time.Duration) error {
	if retention <= 0 {
		retention = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.recordKey(userID), rec, retention)
}

func (s *RedisProgressStore) Delete(userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Del(ctx, s.recordKey(userID))
}
