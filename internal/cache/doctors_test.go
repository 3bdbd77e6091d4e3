package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/harentsoaR/clinic-api/internal/models"
)

func TestNilCacheIsAMiss(t *testing.T) {
	var c *DoctorCache
	ctx := context.Background()

	c.Set(ctx, []models.DoctorCard{{Name: "Dr. Mehta"}})
	c.Invalidate(ctx)
	cards, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, cards)
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewDoctorCache(rdb, time.Minute, zerolog.Nop())
	ctx := context.Background()

	c.Set(ctx, []models.DoctorCard{{Name: "Dr. Mehta"}})
	_, ok := c.Get(ctx)
	assert.False(t, ok)
	c.Invalidate(ctx)
}
