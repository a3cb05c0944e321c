package background

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialprobe/pkg/utils"
)

const taskKeyPrefix = "task:"

// RedisTaskStore keeps task results in Redis so they survive restarts and are
// visible to every replica. Keys expire after ttl.
type RedisTaskStore struct {
	client *utils.RedisClient
	ttl    time.Duration
}

// NewRedisTaskStore creates a Redis-backed task store
func NewRedisTaskStore(client *utils.RedisClient, ttl time.Duration) *RedisTaskStore {
	return &RedisTaskStore{client: client, ttl: ttl}
}

// Store stores a task result
func (s *RedisTaskStore) Store(ctx context.Context, result *TaskResult) error {
	return s.client.SetJSON(ctx, taskKey(result.ProcessID), result, s.ttl)
}

// Get retrieves a task result by process ID
func (s *RedisTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	var result TaskResult
	if err := s.client.GetJSON(ctx, taskKey(processID), &result); err != nil {
		if errors.Is(err, utils.ErrCacheMiss) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &result, nil
}

// Update updates a task result
func (s *RedisTaskStore) Update(ctx context.Context, result *TaskResult) error {
	exists, err := s.client.Exists(ctx, taskKey(result.ProcessID))
	if err != nil {
		return fmt.Errorf("failed to check task %s: %w", result.ProcessID, err)
	}
	if !exists {
		return ErrTaskNotFound
	}
	return s.client.SetJSON(ctx, taskKey(result.ProcessID), result, s.ttl)
}

// Delete removes a task result
func (s *RedisTaskStore) Delete(ctx context.Context, processID string) error {
	exists, err := s.client.Exists(ctx, taskKey(processID))
	if err != nil {
		return err
	}
	if !exists {
		return ErrTaskNotFound
	}
	return s.client.Delete(ctx, taskKey(processID))
}

// Cleanup removes results older than maxAge. Keys normally expire on their
// own; this catches entries written with a longer ttl.
func (s *RedisTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	results, err := s.List(ctx)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, result := range results {
		if result.CreatedAt.Before(cutoff) {
			if err := s.client.Delete(ctx, taskKey(result.ProcessID)); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns all task results, oldest first
func (s *RedisTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	keys, err := s.client.Keys(ctx, taskKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	results := make([]*TaskResult, 0, len(keys))
	for _, key := range keys {
		result, err := s.Get(ctx, strings.TrimPrefix(key, taskKeyPrefix))
		if errors.Is(err, ErrTaskNotFound) {
			// expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	sortByCreation(results)
	return results, nil
}

func taskKey(processID string) string {
	return taskKeyPrefix + processID
}
