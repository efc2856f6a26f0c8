package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("key not found")

// CacheService stores JSON-encoded values in redis. It backs both the FPL
// client's upstream cache and the optimization result cache.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get decodes the value at key into dest, returning ErrCacheMiss when absent.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (s *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return val > 0, nil
}

func (s *CacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SetWithRetry retries transient write failures with a linear backoff.
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		logrus.Warnf("Cache set failed (attempt %d/%d): %v", i+1, maxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 100 * time.Duration(i+1)):
		}
	}
	return err
}

// InvalidatePrefix removes every key starting with prefix.
func (s *CacheService) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	var removed int
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache: %w", err)
	}
	return removed, nil
}

// OptimizationCacheKey hashes a request body into a stable cache key.
func OptimizationCacheKey(request interface{}) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to hash request: %w", err)
	}
	return fmt.Sprintf("optimization:%x", md5.Sum(data)), nil
}
