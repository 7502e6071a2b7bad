package plancache

import (
	"context"
	"errors"
)

// PlanCache remembers which gateway billing plan serves a product, so repeat
// subscriptions skip the store search and the provider round trip.
type PlanCache interface {
	Get(ctx context.Context, productID string) (string, error)
	Set(ctx context.Context, productID, planID string) error
}

var ErrCacheMiss = errors.New("cache miss")
