package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const redisKeyPrefix = "rates"

// CachedProvider is a Redis read-through cache in front of another provider.
// Redis failures degrade to the wrapped provider.
type CachedProvider struct {
	next  Provider
	redis redis.Cmdable
	ttl   time.Duration
}

func NewCachedProvider(next Provider, rdb redis.Cmdable, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedProvider{next: next, redis: rdb, ttl: ttl}
}

func (c *CachedProvider) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if c.redis != nil {
		val, err := c.redis.Get(ctx, redisKey(code)).Result()
		switch {
		case err == nil:
			if rate, parseErr := decimal.NewFromString(val); parseErr == nil && rate.IsPositive() {
				observability.IncrementRateLookup("cache_hit")
				return rate, nil
			}
			zap.L().Warn("discarding malformed cached rate", zap.String("currency", code), zap.String("value", val))
		case errors.Is(err, redis.Nil):
		default:
			zap.L().Warn("redis rate lookup failed", zap.String("currency", code), zap.Error(err))
		}
	}

	rate, err := c.next.Rate(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownCurrency) {
			observability.IncrementRateLookup("unknown")
		} else {
			observability.IncrementRateLookup("error")
		}
		return decimal.Zero, err
	}
	observability.IncrementRateLookup("cache_miss")

	if c.redis != nil {
		if err := c.redis.Set(ctx, redisKey(code), rate.String(), c.ttl).Err(); err != nil {
			zap.L().Warn("redis rate cache set failed", zap.String("currency", code), zap.Error(err))
		}
	}
	return rate, nil
}

// Rates lists the wrapped provider's table, bypassing the cache.
func (c *CachedProvider) Rates(ctx context.Context) (Table, error) {
	lister, ok := c.next.(Lister)
	if !ok {
		return Table{}, fmt.Errorf("rate provider %T cannot list rates", c.next)
	}
	return lister.Rates(ctx)
}

// Invalidate drops every cached rate.
func (c *CachedProvider) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, redisKeyPrefix+":*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cached rates: %w", err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cached rates: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func redisKey(currency string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, currency)
}
