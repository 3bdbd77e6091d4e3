// Package cache keeps the public doctor profiles in Redis. A nil *DoctorCache
// is valid and behaves as an always-empty cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/models"
)

const doctorListKey = "clinic:doctors:list"

type DoctorCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger zerolog.Logger
}

func NewDoctorCache(rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) *DoctorCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DoctorCache{rdb: rdb, ttl: ttl, logger: logger.With().Str("component", "doctor_cache").Logger()}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Get returns the cached listing. Errors are logged and reported as a miss.
func (c *DoctorCache) Get(ctx context.Context) ([]models.DoctorCard, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, doctorListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("doctor list cache read failed")
		return nil, false
	}
	var cards []models.DoctorCard
	if err := json.Unmarshal(raw, &cards); err != nil {
		c.logger.Warn().Err(err).Msg("doctor list cache entry is corrupt")
		return nil, false
	}
	return cards, true
}

func (c *DoctorCache) Set(ctx context.Context, cards []models.DoctorCard) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, doctorListKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("doctor list cache write failed")
	}
}

// Invalidate drops the listing after a change to a doctor's profile or to the
// roster. Booked slots are not cached.
func (c *DoctorCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, doctorListKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("doctor list cache invalidation failed")
	}
}
