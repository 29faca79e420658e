package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderDebitsWalletAndLinksEntry(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(10_000)
	ctx := context.Background()

	order, err := f.orders.PlaceOrder(ctx, owner, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 7_500, Note: "  recharge  "})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "75.00", order.Amount)
	require.NotNil(t, order.Note)
	assert.Equal(t, "recharge", *order.Note)

	assert.Equal(t, int64(2_500), f.balance(t, owner.ID))
	entries := f.store.Entries(owner.ID)
	require.Len(t, entries, 2)
	purchase := entries[1]
	assert.Equal(t, order.EntryID, purchase.ID)
	assert.Equal(t, string(domain.EntryPurchase), purchase.Kind)
	assert.Equal(t, int64(-7_500), purchase.Amount)
	require.NotNil(t, purchase.ReferenceID)
	assert.Equal(t, order.ID, *purchase.ReferenceID)
	f.requireBalanced(t, owner.ID)

	assert.Equal(t, []string{events.TypeEntryPosted, events.TypeOrderPlaced}, f.events.Types())

	got, err := f.orders.GetOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	listed, err := f.orders.ListOrders(ctx, f.admin, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, order.ID, listed[0].ID)
}

func TestPlaceOrderInsufficientFundsCreatesNothing(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(5_000)

	_, err := f.orders.PlaceOrder(context.Background(), owner, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 7_500})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(5_000), f.balance(t, owner.ID))
	assert.Len(t, f.store.Entries(owner.ID), 1)
	assert.Empty(t, f.store.Orders())
	assert.Empty(t, f.events.Types())
}

func TestPlaceOrderRollsBackDebitWhenOrderInsertFails(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(5_000)
	boom := errors.New("connection reset")
	f.store.FailOn("InsertOrder", boom)

	_, err := f.orders.PlaceOrder(context.Background(), owner, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 1_000})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(5_000), f.balance(t, owner.ID))
	assert.Len(t, f.store.Entries(owner.ID), 1)
	assert.Empty(t, f.store.Orders())
	assert.Empty(t, f.store.AuditLog())
	f.requireBalanced(t, owner.ID)
}

func TestPlaceOrderAccess(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(5_000)
	ctx := context.Background()

	stranger := authz.Actor{ID: uuid.New(), Role: authz.RoleReseller}
	_, err := f.orders.PlaceOrder(ctx, stranger, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 100})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.orders.PlaceOrder(ctx, owner, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 0})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	order, err := f.orders.PlaceOrder(ctx, f.admin, PlaceOrderRequest{AccountID: owner.ID, AmountCents: 100})
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, stranger, order.ID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.orders.GetOrder(ctx, owner, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
