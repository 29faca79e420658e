package rates

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	rate  decimal.Decimal
	err   error
}

func (p *countingProvider) Rate(_ context.Context, _ string) (decimal.Decimal, error) {
	p.calls++
	return p.rate, p.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCachedProviderReadThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	next := &countingProvider{rate: decimal.NewFromInt(4100)}
	c := NewCachedProvider(next, rdb, time.Minute)
	ctx := context.Background()

	rate, err := c.Rate(ctx, "cop")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(4100)))

	rate, err = c.Rate(ctx, "COP")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(4100)))
	assert.Equal(t, 1, next.calls)

	cached, err := mr.Get("rates:COP")
	require.NoError(t, err)
	assert.Equal(t, "4100", cached)

	mr.FastForward(2 * time.Minute)
	_, err = c.Rate(ctx, "COP")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	mr, rdb := newRedis(t)
	next := &countingProvider{err: fmt.Errorf("%w: ARS", ErrUnknownCurrency)}
	c := NewCachedProvider(next, rdb, time.Minute)

	_, err := c.Rate(context.Background(), "ARS")
	require.ErrorIs(t, err, ErrUnknownCurrency)
	assert.False(t, mr.Exists("rates:ARS"))
}

func TestCachedProviderSurvivesRedisOutage(t *testing.T) {
	mr, rdb := newRedis(t)
	next := &countingProvider{rate: decimal.NewFromInt(40)}
	c := NewCachedProvider(next, rdb, time.Minute)
	mr.Close()

	rate, err := c.Rate(context.Background(), "VES")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(40)))
}

func TestCachedProviderInvalidate(t *testing.T) {
	mr, rdb := newRedis(t)
	static, err := NewStaticProvider("USD", DefaultRates)
	require.NoError(t, err)
	c := NewCachedProvider(static, rdb, time.Minute)
	ctx := context.Background()

	_, err = c.Rate(ctx, "COP")
	require.NoError(t, err)
	_, err = c.Rate(ctx, "VES")
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "x"))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists("rates:COP"))
	assert.False(t, mr.Exists("rates:VES"))
	assert.True(t, mr.Exists("unrelated"))

	table, err := c.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
}
