package cache

import (
	"context"
	"time"

	"kasirinaja/checkout/internal/domain"
)

// LoyaltyAccountCache keeps recently fetched loyalty accounts keyed by
// customer. A miss is reported as ok=false with a nil error.
type LoyaltyAccountCache interface {
	Get(ctx context.Context, customerID string) (*domain.LoyaltyAccount, bool, error)
	Set(ctx context.Context, customerID string, account *domain.LoyaltyAccount, ttl time.Duration) error
	Delete(ctx context.Context, customerID string) error
}

type NoopLoyaltyCache struct{}

func (NoopLoyaltyCache) Get(_ context.Context, _ string) (*domain.LoyaltyAccount, bool, error) {
	return nil, false, nil
}

func (NoopLoyaltyCache) Set(_ context.Context, _ string, _ *domain.LoyaltyAccount, _ time.Duration) error {
	return nil
}

func (NoopLoyaltyCache) Delete(_ context.Context, _ string) error {
	return nil
}
