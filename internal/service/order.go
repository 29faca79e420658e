package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService pays for purchases out of a wallet.
type OrderService struct {
	store  QueryStore
	ledger *LedgerService
	audit  *AuditService
	events events.Publisher
}

func NewOrderService(store QueryStore, ledger *LedgerService, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		store:  store,
		ledger: ledger,
		audit:  NewAuditService(store),
		events: publisher,
	}
}

type PlaceOrderRequest struct {
	AccountID   uuid.UUID
	AmountCents int64
	Note        string
}

// PlaceOrder debits the wallet and records a PAID order in one transaction.
// Either both exist afterwards or neither does.
func (s *OrderService) PlaceOrder(ctx context.Context, actor authz.Actor, req PlaceOrderRequest) (*models.Order, error) {
	if err := authz.RequireAccount(actor, req.AccountID, authz.ManageAccounts); err != nil {
		return nil, err
	}
	if err := domain.ValidateCents(req.AmountCents); err != nil {
		return nil, err
	}

	orderID := uuid.New()
	note := strings.TrimSpace(req.Note)
	entryNote := fmt.Sprintf("order %s", orderID)
	if note != "" {
		entryNote = fmt.Sprintf("order %s: %s", orderID, note)
	}

	var (
		order repository.Order
		entry repository.LedgerEntry
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		var err error
		entry, err = s.ledger.debitTx(ctx, qtx, Posting{
			AccountID:     req.AccountID,
			Amount:        req.AmountCents,
			Kind:          domain.EntryPurchase,
			Note:          entryNote,
			ReferenceType: domain.ReferenceOrder,
			ReferenceID:   &orderID,
		})
		if err != nil {
			return err
		}

		order, err = qtx.InsertOrder(ctx, repository.InsertOrderParams{
			ID:        orderID,
			AccountID: req.AccountID,
			Amount:    req.AmountCents,
			Status:    models.OrderStatusPaid,
			Note:      textParam(note),
			EntryID:   entry.ID,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		return s.audit.Write(ctx, qtx, auditEntityOrder, orderID, &actor.ID, "placed", "", models.OrderStatusPaid,
			auditMetadata(map[string]any{"amount_cents": req.AmountCents, "entry_id": entry.ID}))
	})
	if err != nil {
		s.ledger.failed(Posting{Kind: domain.EntryPurchase}, err)
		return nil, err
	}

	s.ledger.committed(ctx, entry)
	out := toOrder(order)
	publish(ctx, s.events, events.New(events.TypeOrderPlaced, order.AccountID, order.ID, out))
	zap.L().Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("account_id", order.AccountID.String()),
		zap.Int64("amount_cents", order.Amount),
	)
	return out, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Order, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()

	row, err := s.store.Queries().GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order %s", orderID)
	}
	if err := authz.RequireAccount(actor, row.AccountID, authz.ViewAnyAccount); err != nil {
		return nil, err
	}
	return toOrder(row), nil
}

// ListOrders returns an account's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, actor authz.Actor, accountID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if err := authz.RequireAccount(actor, accountID, authz.ViewAnyAccount); err != nil {
		return nil, err
	}
	l, o, err := pageBounds(limit, offset)
	if err != nil {
		return nil, err
	}
	ctx, cancel := readContext(ctx)
	defer cancel()

	rows, err := s.store.Queries().ListOrdersByAccount(ctx, repository.ListOrdersByAccountParams{
		AccountID: accountID,
		Limit:     l,
		Offset:    o,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, *toOrder(row))
	}
	return out, nil
}
