package service

import (
	"context"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/rates"
	"github.com/ayo6706/wallet-ledger/internal/testutil/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store          *memstore.Store
	events         *events.Recorder
	ledger         *LedgerService
	accounts       *AccountService
	orders         *OrderService
	deposits       *DepositService
	withdrawals    *WithdrawalService
	reconciliation *ReconciliationService
	admin          authz.Actor
}

func testRates(t *testing.T) *rates.StaticProvider {
	t.Helper()
	p, err := rates.NewStaticProvider("USD", map[string]string{
		"COP": "4100",
		"VES": "40",
		"EUR": "0.9",
	})
	require.NoError(t, err)
	return p
}

func newFixture(t *testing.T, provider rates.Provider, opts ...DepositOption) *fixture {
	t.Helper()
	if provider == nil {
		provider = testRates(t)
	}
	store := memstore.New()
	recorder := &events.Recorder{}
	ledger := NewLedgerService(store, recorder)
	return &fixture{
		store:          store,
		events:         recorder,
		ledger:         ledger,
		accounts:       NewAccountService(store, "USD"),
		orders:         NewOrderService(store, ledger, recorder),
		deposits:       NewDepositService(store, ledger, provider, recorder, opts...),
		withdrawals:    NewWithdrawalService(store, ledger, recorder),
		reconciliation: NewReconciliationService(store),
		admin:          authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin},
	}
}

// seedWallet creates a reseller-owned account holding cents.
func (f *fixture) seedWallet(cents int64) authz.Actor {
	id := uuid.New()
	f.store.SeedAccount(id, cents)
	return authz.Actor{ID: id, Role: authz.RoleReseller}
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	acct, ok := f.store.Account(id)
	require.True(t, ok)
	return acct.Balance
}

// requireBalanced asserts balance == sum(entries) and last_seq == count.
func (f *fixture) requireBalanced(t *testing.T, id uuid.UUID) {
	t.Helper()
	acct, ok := f.store.Account(id)
	require.True(t, ok)
	entries := f.store.Entries(id)
	require.Equal(t, acct.Balance, f.store.EntrySum(id), "balance must equal the sum of entries")
	require.Equal(t, acct.LastSeq, int64(len(entries)), "last_seq must equal the entry count")
	for i, e := range entries {
		require.Equal(t, int64(i+1), e.Seq, "entry sequence must have no gaps")
	}
	require.GreaterOrEqual(t, acct.Balance, int64(0))
}

type stubProvider struct {
	rate  decimal.Decimal
	err   error
	block bool
	calls int
}

func (p *stubProvider) Rate(ctx context.Context, _ string) (decimal.Decimal, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}
	return p.rate, p.err
}
