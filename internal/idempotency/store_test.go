package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ayo6706/wallet-ledger/internal/testutil/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, memstore.New().Queries(), time.Hour), mr
}

func TestReserveFinalizeReplay(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	key := Scope("user-1", "order-42")

	_, err := s.Lookup(ctx, key, "hash-a")
	require.ErrorIs(t, err, ErrNotFound)

	reserved, err := s.Reserve(ctx, key, "hash-a", "POST", "/v1/orders")
	require.NoError(t, err)
	require.True(t, reserved)

	reserved, err = s.Reserve(ctx, key, "hash-a", "POST", "/v1/orders")
	require.NoError(t, err)
	assert.False(t, reserved)

	_, err = s.Lookup(ctx, key, "hash-a")
	require.ErrorIs(t, err, ErrInProgress)

	_, err = s.Finalize(ctx, key, "hash-a", 201, []byte(`{"id":"x"}`), "application/json")
	require.NoError(t, err)
	assert.True(t, mr.Exists("idempotency:user-1:order-42"))

	rec, err := s.Lookup(ctx, key, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, "redis", rec.ServedBy)
	assert.Equal(t, 201, rec.Status)
	assert.JSONEq(t, `{"id":"x"}`, string(rec.Body))

	_, err = s.Lookup(ctx, key, "hash-b")
	require.ErrorIs(t, err, ErrHashMismatch)

	mr.FlushAll()
	rec, err = s.Lookup(ctx, key, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, "postgres", rec.ServedBy)
}

func TestReleaseAllowsRetry(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	reserved, err := s.Reserve(ctx, "k", "h", "POST", "/v1/withdrawals")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, s.Release(ctx, "k", "h"))

	reserved, err = s.Reserve(ctx, "k", "h", "POST", "/v1/withdrawals")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestWaitForCompletion(t *testing.T) {
	s, _ := newTestStore(t)
	s.poll = 5 * time.Millisecond
	ctx := context.Background()

	_, err := s.Reserve(ctx, "k", "h", "POST", "/v1/orders")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = s.Finalize(context.Background(), "k", "h", 200, []byte(`{}`), "application/json")
	}()

	rec, err := s.WaitForCompletion(ctx, "k", "h")
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Status)

	_, err = s.Reserve(ctx, "stuck", "h", "POST", "/v1/orders")
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = s.WaitForCompletion(waitCtx, "stuck", "h")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookupWithoutRedis(t *testing.T) {
	s := NewStore(nil, memstore.New().Queries(), time.Hour)
	ctx := context.Background()

	_, err := s.Reserve(ctx, "k", "h", "POST", "/v1/orders")
	require.NoError(t, err)
	_, err = s.Finalize(ctx, "k", "h", 201, []byte(`{}`), "application/json")
	require.NoError(t, err)

	rec, err := s.Lookup(ctx, "k", "h")
	require.NoError(t, err)
	assert.Equal(t, "postgres", rec.ServedBy)
}

func TestSweepDeletesOnlyFinishedRecords(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"done", "pending"} {
		_, err := s.Reserve(ctx, key, "h", "POST", "/v1/orders")
		require.NoError(t, err)
	}
	_, err := s.Finalize(ctx, "done", "h", 200, []byte(`{}`), "application/json")
	require.NoError(t, err)

	// memstore timestamps start in 2024, well outside the one hour window.
	deleted, err := s.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.Lookup(ctx, "pending", "h")
	require.ErrorIs(t, err, ErrInProgress)
}
