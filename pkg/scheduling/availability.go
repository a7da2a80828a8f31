package scheduling

import (
	"context"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/pkg/errors"
)

// Exclusion names committed activities that have to be ignored while checking,
// so an order or activity being edited does not conflict with itself
type Exclusion struct {
	OrderID    string
	ActivityID string
}

// IsZero checks if nothing is excluded
func (e Exclusion) IsZero() bool {
	return e.OrderID == "" && e.ActivityID == ""
}

// ActivitySource fetches an operator's committed activity timespans from storage
type ActivitySource interface {
	FindBusyTimespans(ctx context.Context, operatorID string, exclusion Exclusion) ([]date.Timespan, error)
}

// AvailabilityChecker answers whether an operator is free during a candidate timespan
type AvailabilityChecker struct {
	Source ActivitySource
	Cache  BusyCacheInterface
	Logger logger.Interface
}

// NewAvailabilityChecker constructs an AvailabilityChecker
func NewAvailabilityChecker(source ActivitySource, cache BusyCacheInterface, log logger.Interface) *AvailabilityChecker {
	return &AvailabilityChecker{
		Source: source,
		Cache:  cache,
		Logger: log,
	}
}

// BusyRanges returns the operator's committed timespans, merged and sorted.
// Only queries without an Exclusion are cache assisted, excluded variants are
// recomputed on every call.
func (c *AvailabilityChecker) BusyRanges(ctx context.Context, operatorID string, exclusion Exclusion) ([]date.Timespan, error) {
	useCache := c.Cache != nil && exclusion.IsZero()

	if useCache {
		if spans, err := c.Cache.Get(ctx, operatorID); err == nil {
			return spans, nil
		}
	}

	spans, err := c.Source.FindBusyTimespans(ctx, operatorID, exclusion)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch committed activities")
	}

	spans = date.MergeTimespans(spans)

	if useCache {
		if err := c.Cache.Add(ctx, operatorID, spans); err != nil {
			c.Logger.Warning("could not cache busy ranges for operator " + operatorID)
		}
	}

	return spans, nil
}

// CheckAvailability checks the candidate timespan against every committed activity of
// the operator, regardless of activity status. An empty operator id skips the check.
// A fetch failure is returned as an error so callers can distinguish it.
func (c *AvailabilityChecker) CheckAvailability(ctx context.Context, operatorID string, candidate date.Timespan, exclusion Exclusion) (bool, error) {
	if operatorID == "" {
		return true, nil
	}

	busy, err := c.BusyRanges(ctx, operatorID, exclusion)
	if err != nil {
		return false, err
	}

	for _, span := range busy {
		if span.IntersectsWith(candidate) {
			return false, nil
		}
	}

	return true, nil
}

// IsAvailable is the fail closed variant of CheckAvailability: a fetch failure
// reports the operator as busy
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, operatorID string, candidate date.Timespan, exclusion Exclusion) bool {
	available, err := c.CheckAvailability(ctx, operatorID, candidate, exclusion)
	if err != nil {
		c.Logger.Error("could not determine availability, assuming busy", err)
		return false
	}

	return available
}

// Invalidate drops cached busy ranges after an operator's activities changed
func (c *AvailabilityChecker) Invalidate(ctx context.Context, operatorID string) {
	if c.Cache == nil {
		return
	}

	if err := c.Cache.Invalidate(ctx, operatorID); err != nil {
		c.Logger.Warning("could not invalidate busy cache for operator " + operatorID)
	}
}
