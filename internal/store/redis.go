package store

import (
	"browser-pause-agent/internal/pause"
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisHistory keeps pause events in a Redis list, oldest first.
type RedisHistory struct {
	client *backend.Client
	key    string
	limit  int64
}

type Option func(*RedisHistory)

// WithLimit keeps only the newest n events.
func WithLimit(n int64) Option {
	return func(s *RedisHistory) {
		s.limit = n
	}
}

func NewRedisHistory(address, password string, db int, key string, opts ...Option) *RedisHistory {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewRedisHistoryFromClient(client, key, opts...)
}

func NewRedisHistoryFromClient(client *backend.Client, key string, opts ...Option) *RedisHistory {
	s := &RedisHistory{
		client: client,
		key:    key,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisHistory) Record(ctx context.Context, event pause.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal pause event: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.key, data)

	if s.limit > 0 {
		pipe.LTrim(ctx, s.key, -s.limit, -1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save pause event to redis: %w", err)
	}

	return nil
}

func (s *RedisHistory) List(ctx context.Context) ([]pause.Event, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pause history from redis: %w", err)
	}

	events := make([]pause.Event, 0, len(raw))

	for _, item := range raw {
		var event pause.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pause event: %w", err)
		}

		events = append(events, event)
	}

	return events, nil
}

func (s *RedisHistory) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisHistory) Close() error {
	return s.client.Close()
}
