// Package cache provides the Redis-backed TTL cache for provider payloads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss marks a cache lookup that found nothing usable.
var ErrMiss = errors.New("cache miss")

// Cache is the payload cache the providers consult before hitting the
// network.
type Cache interface {
	// Get unmarshals the cached payload for key into dest.
	Get(ctx context.Context, key string, dest any) error
	// Set stores the payload under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	Stats() Stats
	Health(ctx context.Context) bool
	Close() error
}

// Stats reports cache effectiveness.
type Stats struct {
	HitRate     float64 `json:"hit_rate"`
	TotalHits   int64   `json:"total_hits"`
	TotalMisses int64   `json:"total_misses"`
	TotalSets   int64   `json:"total_sets"`
	ErrorCount  int64   `json:"error_count"`
	LastError   string  `json:"last_error,omitempty"`
	Connected   bool    `json:"connected"`
}

const keyPrefix = "superstock:"

// Redis implements Cache on a Redis client.
type Redis struct {
	client *redis.Client
	stats  Stats
}

// NewRedis connects a cache to the given Redis instance.
func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return &Redis{client: client, stats: Stats{Connected: true}}
}

func (r *Redis) Get(ctx context.Context, key string, dest any) error {
	raw, err := r.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.stats.TotalMisses++
			r.updateHitRate()
			return ErrMiss
		}
		r.fail("get", err)
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		r.fail("decode", err)
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	r.stats.TotalHits++
	r.stats.Connected = true
	r.updateHitRate()
	return nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		r.fail("encode", err)
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		r.fail("set", err)
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	r.stats.TotalSets++
	r.stats.Connected = true
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}

func (r *Redis) Stats() Stats {
	r.updateHitRate()
	return r.stats
}

func (r *Redis) Health(ctx context.Context) bool {
	pong, err := r.client.Ping(ctx).Result()
	if err != nil || pong != "PONG" {
		r.fail("ping", err)
		return false
	}
	r.stats.Connected = true
	return true
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) fail(op string, err error) {
	r.stats.ErrorCount++
	r.stats.LastError = fmt.Sprintf("%s: %v", op, err)
	r.stats.Connected = false
}

func (r *Redis) updateHitRate() {
	total := r.stats.TotalHits + r.stats.TotalMisses
	if total > 0 {
		r.stats.HitRate = float64(r.stats.TotalHits) / float64(total)
	}
}
