package loyalty

import (
	"context"
	"log"
	"strings"
	"time"

	"kasirinaja/checkout/internal/cache"
	"kasirinaja/checkout/internal/domain"
)

type AccountStore interface {
	GetLoyaltyAccount(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error)
}

// Directory resolves loyalty accounts, consulting the cache before the store.
type Directory struct {
	store    AccountStore
	cache    cache.LoyaltyAccountCache
	cacheTTL time.Duration
}

func NewDirectory(store AccountStore, accountCache cache.LoyaltyAccountCache, cacheTTL time.Duration) *Directory {
	if accountCache == nil {
		accountCache = cache.NoopLoyaltyCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Directory{store: store, cache: accountCache, cacheTTL: cacheTTL}
}

func (d *Directory) Account(ctx context.Context, customerID string) (domain.LoyaltyAccount, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.LoyaltyAccount{}, nil
	}
	if cached, ok, err := d.cache.Get(ctx, customerID); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[loyalty] WARN: cache read failed customer=%s: %v", customerID, err)
	}

	account, err := d.store.GetLoyaltyAccount(ctx, customerID)
	if err != nil {
		return domain.LoyaltyAccount{}, err
	}
	if err := d.cache.Set(ctx, customerID, account, d.cacheTTL); err != nil {
		log.Printf("[loyalty] WARN: cache write failed customer=%s: %v", customerID, err)
	}
	return *account, nil
}

func (d *Directory) Invalidate(ctx context.Context, customerID string) {
	if err := d.cache.Delete(ctx, customerID); err != nil {
		log.Printf("[loyalty] WARN: cache delete failed customer=%s: %v", customerID, err)
	}
}
