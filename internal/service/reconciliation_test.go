package service

import (
	"context"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationBalancedAfterActivity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.seedWallet(10_000)
	bob := f.seedWallet(0)

	_, err := f.orders.PlaceOrder(ctx, alice, PlaceOrderRequest{AccountID: alice.ID, AmountCents: 2_500})
	require.NoError(t, err)
	w := requestWithdrawal(t, f, alice, 1_000)
	_, err = f.withdrawals.Reject(ctx, f.admin, w.ID, "")
	require.NoError(t, err)
	reportID := submitReport(t, f, bob, "82000.00", "COP")
	_, err = f.deposits.Approve(ctx, f.admin, reportID)
	require.NoError(t, err)

	report, err := f.reconciliation.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, 2, report.AccountsChecked)
	assert.Empty(t, report.Mismatches)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestReconciliationDetectsDrift(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	healthy := f.seedWallet(1_000)
	drifted := f.seedWallet(1_000)
	f.store.ForceBalance(drifted.ID, 1_500)

	_, err := f.reconciliation.Check(ctx, healthy)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	report, err := f.reconciliation.Check(ctx, f.admin)
	require.NoError(t, err)
	assert.False(t, report.Balanced)
	assert.Equal(t, 2, report.AccountsChecked)
	require.Len(t, report.Mismatches, 1)

	m := report.Mismatches[0]
	assert.Equal(t, drifted.ID, m.AccountID)
	assert.Equal(t, int64(1_500), m.Balance)
	assert.Equal(t, int64(1_000), m.EntrySum)
	assert.Equal(t, int64(1), m.LastSeq)
	assert.Equal(t, int64(1), m.EntryCount)
}
