package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	id := uuid.New()
	store.SeedAccount(id, 500)

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, q repository.Querier) error {
		if _, err := q.ApplyAccountDelta(ctx, repository.ApplyAccountDeltaParams{ID: id, Delta: -200}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acct, ok := store.Account(id)
	require.True(t, ok)
	assert.Equal(t, int64(500), acct.Balance)
	assert.Equal(t, int64(1), acct.LastSeq)
}

func TestApplyAccountDeltaRejectsNegativeBalance(t *testing.T) {
	ctx := context.Background()
	store := New()
	id := uuid.New()
	store.SeedAccount(id, 100)

	_, err := store.Queries().ApplyAccountDelta(ctx, repository.ApplyAccountDeltaParams{ID: id, Delta: -101})
	require.Error(t, err)

	_, err = store.Queries().GetAccount(ctx, uuid.New())
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestFailOnHook(t *testing.T) {
	ctx := context.Background()
	store := New()
	id := uuid.New()
	store.SeedAccount(id, 0)

	injected := errors.New("injected")
	store.FailOn("GetAccount", injected)
	_, err := store.Queries().GetAccount(ctx, id)
	require.ErrorIs(t, err, injected)

	store.FailOn("GetAccount", nil)
	_, err = store.Queries().GetAccount(ctx, id)
	require.NoError(t, err)
}
