package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"socialprobe/internal/config"
	"socialprobe/internal/logging"
	"socialprobe/pkg/models"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// RedisClient wraps the Redis client with profile cache and JSON helpers
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// CachedProfile is the stored form of an analyzed account
type CachedProfile struct {
	Handle   string              `json:"handle"`
	Account  *models.AccountData `json:"account"`
	CachedAt time.Time           `json:"cached_at"`
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config) *RedisClient {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	return NewRedisClientFrom(redis.NewClient(opts), cfg.Cache.TTL)
}

// NewRedisClientFrom wraps an existing client
func NewRedisClientFrom(client *redis.Client, ttl time.Duration) *RedisClient {
	return &RedisClient{
		client: client,
		ttl:    ttl,
		logger: logging.GetGlobalLogger(),
	}
}

// Ping tests the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// IsHealthy checks if Redis is connected and healthy
func (r *RedisClient) IsHealthy(ctx context.Context) error {
	return r.Ping(ctx)
}

// GetProfile returns the cached analysis for handle
func (r *RedisClient) GetProfile(ctx context.Context, handle string) (*CachedProfile, error) {
	var cached CachedProfile
	if err := r.GetJSON(ctx, profileKey(handle), &cached); err != nil {
		return nil, err
	}
	if cached.Account == nil {
		return nil, ErrCacheMiss
	}
	return &cached, nil
}

// SetProfile caches an analysis for the configured TTL
func (r *RedisClient) SetProfile(ctx context.Context, handle string, account *models.AccountData) error {
	cached := &CachedProfile{
		Handle:   handle,
		Account:  account,
		CachedAt: time.Now().UTC(),
	}
	if err := r.SetJSON(ctx, profileKey(handle), cached, r.ttl); err != nil {
		r.logger.Error("Failed to cache profile", map[string]interface{}{
			"handle": handle,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// DeleteProfile evicts a cached analysis
func (r *RedisClient) DeleteProfile(ctx context.Context, handle string) error {
	return r.client.Del(ctx, profileKey(handle)).Err()
}

// GetJSON decodes the value stored at key into out
func (r *RedisClient) GetJSON(ctx context.Context, key string, out interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value at key. A zero ttl keeps the key until deleted.
func (r *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present
func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes key
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Keys returns every key matching pattern using SCAN
func (r *RedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	return keys, nil
}

// profileKey generates the Redis key for a cached analysis
func profileKey(handle string) string {
	return fmt.Sprintf("profile:%s", handle)
}
