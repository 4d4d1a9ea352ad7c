package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kasirinaja/checkout/internal/domain"
)

const loyaltyKeyPrefix = "checkout:loyalty:"

type RedisLoyaltyCache struct {
	client *redis.Client
}

func NewRedisLoyaltyCache(addr string, password string, db int) *RedisLoyaltyCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisLoyaltyCache{client: client}
}

func (c *RedisLoyaltyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLoyaltyCache) Close() error {
	return c.client.Close()
}

func (c *RedisLoyaltyCache) Get(ctx context.Context, customerID string) (*domain.LoyaltyAccount, bool, error) {
	val, err := c.client.Get(ctx, loyaltyKey(customerID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var account domain.LoyaltyAccount
	if err := json.Unmarshal([]byte(val), &account); err != nil {
		return nil, false, err
	}
	return &account, true, nil
}

func (c *RedisLoyaltyCache) Set(ctx context.Context, customerID string, account *domain.LoyaltyAccount, ttl time.Duration) error {
	if account == nil {
		return nil
	}
	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, loyaltyKey(customerID), payload, ttl).Err()
}

func (c *RedisLoyaltyCache) Delete(ctx context.Context, customerID string) error {
	return c.client.Del(ctx, loyaltyKey(customerID)).Err()
}

func loyaltyKey(customerID string) string {
	return loyaltyKeyPrefix + customerID
}
