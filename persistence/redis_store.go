package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

const (
	resultKeyPrefix     = "maestro:result:"
	checkpointKeyPrefix = "maestro:checkpoint:"
)

// RedisStore persists records in Redis with an optional TTL. Zero TTL
// keeps records until explicitly deleted.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore wraps an existing client. The store does not own the
// client's lifecycle beyond Close.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_store")),
	}
}

// SaveResult implements Store.
func (s *RedisStore) SaveResult(ctx context.Context, result *types.ExecutionResult) error {
	return s.set(ctx, resultKeyPrefix+result.ExecutionID, result)
}

// LoadResult implements Store.
func (s *RedisStore) LoadResult(ctx context.Context, executionID string) (*types.ExecutionResult, error) {
	var result types.ExecutionResult
	if err := s.get(ctx, resultKeyPrefix+executionID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveCheckpoint implements Store.
func (s *RedisStore) SaveCheckpoint(ctx context.Context, result *types.Level2Result) error {
	return s.set(ctx, checkpointKeyPrefix+result.TaskName, result)
}

// LoadCheckpoint implements Store.
func (s *RedisStore) LoadCheckpoint(ctx context.Context, taskName string) (*types.Level2Result, error) {
	var result types.Level2Result
	if err := s.get(ctx, checkpointKeyPrefix+taskName, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
