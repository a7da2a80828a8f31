package scheduling

import (
	"context"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
)

// BusyCacheRedis shares busy ranges between instances
type BusyCacheRedis struct {
	Cache *cache.Cache
}

// NewBusyCacheRedis initializes a new BusyCacheRedis
func NewBusyCacheRedis(redisClient *redis.Client) *BusyCacheRedis {
	redisCache := cache.New(&cache.Options{
		Redis: redisClient,
	})

	return &BusyCacheRedis{
		Cache: redisCache,
	}
}

func busyCacheKey(operatorID string) string {
	return "busy-ranges:" + operatorID
}

// Add stores an operator's busy ranges
func (c *BusyCacheRedis) Add(ctx context.Context, operatorID string, spans []date.Timespan) error {
	return c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   busyCacheKey(operatorID),
		Value: spans,
		TTL:   time.Minute,
	})
}

// Get retrieves an operator's busy ranges
func (c *BusyCacheRedis) Get(ctx context.Context, operatorID string) ([]date.Timespan, error) {
	var spans []date.Timespan
	err := c.Cache.Get(ctx, busyCacheKey(operatorID), &spans)
	if err != nil {
		return nil, err
	}

	return spans, nil
}

// Invalidate drops an operator's busy ranges
func (c *BusyCacheRedis) Invalidate(ctx context.Context, operatorID string) error {
	return c.Cache.Delete(ctx, busyCacheKey(operatorID))
}
