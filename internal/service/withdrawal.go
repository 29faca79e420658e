package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithdrawalService holds funds when a user asks to cash out and either
// confirms the payout or refunds the hold.
type WithdrawalService struct {
	store  QueryStore
	ledger *LedgerService
	audit  *AuditService
	events events.Publisher
}

func NewWithdrawalService(store QueryStore, ledger *LedgerService, publisher events.Publisher) *WithdrawalService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WithdrawalService{
		store:  store,
		ledger: ledger,
		audit:  NewAuditService(store),
		events: publisher,
	}
}

type RequestWithdrawalRequest struct {
	AccountID   uuid.UUID
	AmountCents int64
	Destination models.WithdrawalDestination
}

type WithdrawalFilter struct {
	AccountID *uuid.UUID
	Status    *domain.WithdrawalStatus
	Limit     int
	Offset    int
}

// Request debits a WITHDRAWAL_HOLD and records a PENDING request in one
// transaction.
func (s *WithdrawalService) Request(ctx context.Context, actor authz.Actor, req RequestWithdrawalRequest) (*models.Withdrawal, error) {
	if err := authz.RequireAccount(actor, req.AccountID, authz.ManageAccounts); err != nil {
		return nil, err
	}
	if err := domain.ValidateCents(req.AmountCents); err != nil {
		return nil, err
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err.Error())
	}
	destination, err := json.Marshal(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("encode destination: %w", err)
	}

	withdrawalID := uuid.New()
	var (
		created repository.WithdrawalRequest
		hold    repository.LedgerEntry
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		var err error
		hold, err = s.ledger.debitTx(ctx, qtx, Posting{
			AccountID:     req.AccountID,
			Amount:        req.AmountCents,
			Kind:          domain.EntryWithdrawalHold,
			Note:          fmt.Sprintf("withdrawal %s hold", withdrawalID),
			ReferenceType: domain.ReferenceWithdrawal,
			ReferenceID:   &withdrawalID,
		})
		if err != nil {
			return err
		}

		created, err = qtx.InsertWithdrawalRequest(ctx, repository.InsertWithdrawalRequestParams{
			ID:          withdrawalID,
			AccountID:   req.AccountID,
			Amount:      req.AmountCents,
			Destination: destination,
			HoldEntryID: hold.ID,
		})
		if err != nil {
			return fmt.Errorf("insert withdrawal request: %w", err)
		}
		return s.audit.Write(ctx, qtx, auditEntityWithdrawal, withdrawalID, &actor.ID, "requested", "", domain.WithdrawalPending.String(),
			auditMetadata(map[string]any{"amount_cents": req.AmountCents, "hold_entry_id": hold.ID}))
	})
	if err != nil {
		s.ledger.failed(Posting{Kind: domain.EntryWithdrawalHold}, err)
		return nil, err
	}

	s.ledger.committed(ctx, hold)
	out, err := toWithdrawal(created)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("withdrawal", "request")
	s.refreshPendingGauge(ctx)
	publish(ctx, s.events, events.New(events.TypeWithdrawalRequested, out.AccountID, out.ID, out))
	return out, nil
}

// Confirm records that the funds were sent. The hold already removed them,
// so the ledger is untouched.
func (s *WithdrawalService) Confirm(ctx context.Context, actor authz.Actor, withdrawalID uuid.UUID) (*models.Withdrawal, error) {
	if err := authz.Require(actor, authz.ReviewWithdrawals); err != nil {
		return nil, err
	}

	var updated repository.WithdrawalRequest
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		row, err := qtx.GetWithdrawalRequestForUpdate(ctx, withdrawalID)
		if err != nil {
			return notFoundOr(err, "withdrawal %s", withdrawalID)
		}
		status, err := domain.ParseWithdrawalStatus(row.Status)
		if err != nil {
			return err
		}
		next, err := status.Next(domain.WithdrawalConfirm)
		if err != nil {
			return err
		}

		rows, err := qtx.ConfirmWithdrawalRequest(ctx, repository.ConfirmWithdrawalRequestParams{
			ID:          withdrawalID,
			ConfirmerID: actor.ID,
		})
		if err != nil {
			return fmt.Errorf("confirm withdrawal: %w", err)
		}
		if err := requirePending(rows, "confirm withdrawal"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityWithdrawal, withdrawalID, &actor.ID, "confirmed", status.String(), next.String(), nil); err != nil {
			return err
		}

		updated, err = qtx.GetWithdrawalRequest(ctx, withdrawalID)
		if err != nil {
			return fmt.Errorf("reload withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := toWithdrawal(updated)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("withdrawal", "confirm")
	s.refreshPendingGauge(ctx)
	publish(ctx, s.events, events.New(events.TypeWithdrawalConfirmed, out.AccountID, out.ID, out))
	zap.L().Info("withdrawal confirmed", zap.String("withdrawal_id", withdrawalID.String()), zap.String("actor_id", actor.ID.String()))
	return out, nil
}

// Reject refunds exactly the held amount and closes the request.
func (s *WithdrawalService) Reject(ctx context.Context, actor authz.Actor, withdrawalID uuid.UUID, reason string) (*models.Withdrawal, error) {
	if err := authz.Require(actor, authz.ReviewWithdrawals); err != nil {
		return nil, err
	}

	var (
		updated repository.WithdrawalRequest
		refund  repository.LedgerEntry
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		row, err := qtx.GetWithdrawalRequestForUpdate(ctx, withdrawalID)
		if err != nil {
			return notFoundOr(err, "withdrawal %s", withdrawalID)
		}
		status, err := domain.ParseWithdrawalStatus(row.Status)
		if err != nil {
			return err
		}
		next, err := status.Next(domain.WithdrawalReject)
		if err != nil {
			return err
		}

		refund, err = s.ledger.creditTx(ctx, qtx, Posting{
			AccountID:     row.AccountID,
			Amount:        row.Amount,
			Kind:          domain.EntryWithdrawalRefund,
			Note:          fmt.Sprintf("withdrawal %s refund", withdrawalID),
			ReferenceType: domain.ReferenceWithdrawal,
			ReferenceID:   &withdrawalID,
		})
		if err != nil {
			return err
		}

		rows, err := qtx.RejectWithdrawalRequest(ctx, repository.RejectWithdrawalRequestParams{
			ID:            withdrawalID,
			RejecterID:    actor.ID,
			RejectReason:  textParam(reason),
			RefundEntryID: refund.ID,
		})
		if err != nil {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		if err := requirePending(rows, "reject withdrawal"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityWithdrawal, withdrawalID, &actor.ID, "rejected", status.String(), next.String(),
			auditMetadata(map[string]any{"reason": strings.TrimSpace(reason), "refund_entry_id": refund.ID})); err != nil {
			return err
		}

		updated, err = qtx.GetWithdrawalRequest(ctx, withdrawalID)
		if err != nil {
			return fmt.Errorf("reload withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, refund)
	out, err := toWithdrawal(updated)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("withdrawal", "reject")
	s.refreshPendingGauge(ctx)
	publish(ctx, s.events, events.New(events.TypeWithdrawalRejected, out.AccountID, out.ID, out))
	zap.L().Info("withdrawal rejected",
		zap.String("withdrawal_id", withdrawalID.String()),
		zap.Int64("refund_cents", out.AmountCents),
		zap.String("actor_id", actor.ID.String()),
	)
	return out, nil
}

func (s *WithdrawalService) Get(ctx context.Context, actor authz.Actor, withdrawalID uuid.UUID) (*models.Withdrawal, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()

	row, err := s.store.Queries().GetWithdrawalRequest(ctx, withdrawalID)
	if err != nil {
		return nil, notFoundOr(err, "withdrawal %s", withdrawalID)
	}
	if err := authz.RequireAccount(actor, row.AccountID, authz.ReviewWithdrawals); err != nil {
		return nil, err
	}
	return toWithdrawal(row)
}

// List returns requests newest first, scoped like DepositService.List.
func (s *WithdrawalService) List(ctx context.Context, actor authz.Actor, filter WithdrawalFilter) ([]models.Withdrawal, error) {
	accountID, err := scopeToActor(actor, filter.AccountID, authz.ReviewWithdrawals)
	if err != nil {
		return nil, err
	}
	limit, offset, err := pageBounds(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	params := repository.ListWithdrawalRequestsParams{AccountID: accountID, Limit: limit, Offset: offset}
	if filter.Status != nil {
		status := filter.Status.String()
		params.Status = &status
	}

	ctx, cancel := readContext(ctx)
	defer cancel()
	rows, err := s.store.Queries().ListWithdrawalRequests(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return toWithdrawals(rows)
}

// ListPending is the review queue, oldest first.
func (s *WithdrawalService) ListPending(ctx context.Context, actor authz.Actor, limit int) ([]models.Withdrawal, error) {
	if err := authz.Require(actor, authz.ReviewWithdrawals); err != nil {
		return nil, err
	}
	l, _, err := pageBounds(limit, 0)
	if err != nil {
		return nil, err
	}

	ctx, cancel := readContext(ctx)
	defer cancel()
	rows, err := s.store.Queries().ListPendingWithdrawalRequests(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	return toWithdrawals(rows)
}

func (s *WithdrawalService) refreshPendingGauge(ctx context.Context) {
	ctx, cancel := readContext(context.WithoutCancel(ctx))
	defer cancel()
	count, err := s.store.Queries().CountPendingWithdrawalRequests(ctx)
	if err != nil {
		zap.L().Warn("count pending withdrawals", zap.Error(err))
		return
	}
	observability.SetPendingWithdrawals(count)
}
