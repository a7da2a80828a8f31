package scheduling

import (
	"context"
	"fmt"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	lru "github.com/hashicorp/golang-lru"
)

// BusyCacheInterface caches merged busy ranges per operator
type BusyCacheInterface interface {
	Add(ctx context.Context, operatorID string, spans []date.Timespan) error
	Get(ctx context.Context, operatorID string) ([]date.Timespan, error)
	Invalidate(ctx context.Context, operatorID string) error
}

// BusyCacheMemory is a process local BusyCacheInterface
type BusyCacheMemory struct {
	Cache *lru.Cache
}

// NewBusyCacheMemory initializes a new BusyCacheMemory
func NewBusyCacheMemory() (*BusyCacheMemory, error) {
	cache, err := lru.New(128)
	if err != nil {
		return nil, err
	}

	return &BusyCacheMemory{
		Cache: cache,
	}, nil
}

// Add stores an operator's busy ranges
func (c *BusyCacheMemory) Add(_ context.Context, operatorID string, spans []date.Timespan) error {
	c.Cache.Add(operatorID, spans)
	return nil
}

// Get retrieves an operator's busy ranges
func (c *BusyCacheMemory) Get(_ context.Context, operatorID string) ([]date.Timespan, error) {
	result, ok := c.Cache.Get(operatorID)
	if !ok {
		return nil, fmt.Errorf("could not find operator %s in busy cache", operatorID)
	}

	spans, ok := result.([]date.Timespan)
	if !ok {
		return nil, fmt.Errorf("cache entry was not a busy range list")
	}

	return spans, nil
}

// Invalidate drops an operator's busy ranges
func (c *BusyCacheMemory) Invalidate(_ context.Context, operatorID string) error {
	c.Cache.Remove(operatorID)
	return nil
}
