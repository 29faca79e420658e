package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/rates"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultRateTimeout = 5 * time.Second

// DepositService runs the payment report workflow: a user claims an
// external payment, a reviewer approves it and the wallet is credited in
// the reference currency.
type DepositService struct {
	store             QueryStore
	ledger            *LedgerService
	rates             rates.Provider
	audit             *AuditService
	events            events.Publisher
	referenceCurrency string
	rateTimeout       time.Duration
}

type DepositOption func(*DepositService)

func WithReferenceCurrency(code string) DepositOption {
	return func(s *DepositService) {
		if code != "" {
			s.referenceCurrency = strings.ToUpper(code)
		}
	}
}

// WithRateTimeout bounds each rate lookup.
func WithRateTimeout(d time.Duration) DepositOption {
	return func(s *DepositService) {
		if d > 0 {
			s.rateTimeout = d
		}
	}
}

func NewDepositService(store QueryStore, ledger *LedgerService, provider rates.Provider, publisher events.Publisher, opts ...DepositOption) *DepositService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &DepositService{
		store:             store,
		ledger:            ledger,
		rates:             provider,
		audit:             NewAuditService(store),
		events:            publisher,
		referenceCurrency: domain.DefaultReferenceCurrency,
		rateTimeout:       defaultRateTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitPaymentReportRequest struct {
	AccountID     uuid.UUID
	ClaimedAmount decimal.Decimal
	Currency      string
	Method        string
	ProofRef      string
	Note          string
}

type PaymentReportFilter struct {
	AccountID *uuid.UUID
	Status    *domain.ReportStatus
	Limit     int
	Offset    int
}

// Submit records a PENDING report. Nothing is credited until approval.
func (s *DepositService) Submit(ctx context.Context, actor authz.Actor, req SubmitPaymentReportRequest) (*models.PaymentReport, error) {
	if err := authz.RequireAccount(actor, req.AccountID, authz.ManageAccounts); err != nil {
		return nil, err
	}
	if err := domain.ValidateDecimalAmount(req.ClaimedAmount); err != nil {
		return nil, err
	}
	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	reportID := uuid.New()
	var created repository.PaymentReport
	err = s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		account, err := qtx.GetAccount(ctx, req.AccountID)
		if err != nil {
			return notFoundOr(err, "account %s", req.AccountID)
		}
		if account.Status != domain.AccountStatusActive {
			return fmt.Errorf("%w: account %s cannot submit payment reports", domain.ErrAccountInactive, req.AccountID)
		}

		created, err = qtx.InsertPaymentReport(ctx, repository.InsertPaymentReportParams{
			ID:            reportID,
			AccountID:     req.AccountID,
			ClaimedAmount: req.ClaimedAmount,
			Currency:      currency,
			Method:        strings.TrimSpace(req.Method),
			ProofRef:      textParam(req.ProofRef),
			Note:          textParam(req.Note),
		})
		if err != nil {
			return fmt.Errorf("insert payment report: %w", err)
		}
		return s.audit.Write(ctx, qtx, auditEntityPaymentReport, reportID, &actor.ID, "submitted", "", domain.ReportPending.String(),
			auditMetadata(map[string]any{"claimed_amount": req.ClaimedAmount.String(), "currency": currency}))
	})
	if err != nil {
		return nil, err
	}

	out, err := toPaymentReport(created)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("deposit", "submit")
	publish(ctx, s.events, events.New(events.TypePaymentReportSubmitted, out.AccountID, out.ID, out))
	return out, nil
}

// Approve converts the claimed amount and credits it as a DEPOSIT. The rate
// is fetched before the transaction opens; the report's status is checked
// again under its row lock so a report is credited at most once.
func (s *DepositService) Approve(ctx context.Context, actor authz.Actor, reportID uuid.UUID) (*models.PaymentReport, error) {
	if err := authz.Require(actor, authz.ReviewDeposits); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if _, err := current.Status.Next(domain.ReportApprove); err != nil {
		return nil, err
	}

	rate, err := s.lookupRate(ctx, current.Currency)
	if err != nil {
		return nil, err
	}
	credited := domain.ConvertToReference(current.ClaimedAmount, rate)
	creditedCents := credited.Shift(domain.AmountScale).IntPart()
	if creditedCents <= 0 {
		return nil, fmt.Errorf("%w: %s %s converts to %s %s",
			domain.ErrInvalidAmount, current.ClaimedAmount, current.Currency, credited.StringFixed(domain.AmountScale), s.referenceCurrency)
	}

	var (
		updated repository.PaymentReport
		entry   repository.LedgerEntry
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		row, err := qtx.GetPaymentReportForUpdate(ctx, reportID)
		if err != nil {
			return notFoundOr(err, "payment report %s", reportID)
		}
		status, err := domain.ParseReportStatus(row.Status)
		if err != nil {
			return err
		}
		next, err := status.Next(domain.ReportApprove)
		if err != nil {
			return err
		}

		entry, err = s.ledger.creditTx(ctx, qtx, Posting{
			AccountID: row.AccountID,
			Amount:    creditedCents,
			Kind:      domain.EntryDeposit,
			Note: fmt.Sprintf("payment report %s: %s %s at rate %s = %s %s",
				reportID, row.ClaimedAmount.StringFixed(domain.AmountScale), row.Currency, rate.String(),
				credited.StringFixed(domain.AmountScale), s.referenceCurrency),
			ReferenceType: domain.ReferencePaymentReport,
			ReferenceID:   &reportID,
		})
		if err != nil {
			return err
		}

		rows, err := qtx.ApprovePaymentReport(ctx, repository.ApprovePaymentReportParams{
			ID:             reportID,
			Rate:           rate,
			CreditedAmount: creditedCents,
			EntryID:        entry.ID,
			ApproverID:     actor.ID,
		})
		if err != nil {
			return fmt.Errorf("approve payment report: %w", err)
		}
		if err := requirePending(rows, "approve payment report"); err != nil {
			return err
		}

		if err := s.audit.Write(ctx, qtx, auditEntityPaymentReport, reportID, &actor.ID, "approved", status.String(), next.String(),
			auditMetadata(map[string]any{
				"rate":           rate.String(),
				"credited_cents": creditedCents,
				"entry_id":       entry.ID,
			})); err != nil {
			return err
		}

		updated, err = qtx.GetPaymentReport(ctx, reportID)
		if err != nil {
			return fmt.Errorf("reload payment report: %w", err)
		}
		return nil
	})
	if err != nil {
		s.ledger.failed(Posting{Kind: domain.EntryDeposit}, err)
		return nil, err
	}

	s.ledger.committed(ctx, entry)
	out, err := toPaymentReport(updated)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("deposit", "approve")
	publish(ctx, s.events, events.New(events.TypePaymentReportApproved, out.AccountID, out.ID, out))
	zap.L().Info("payment report approved",
		zap.String("report_id", reportID.String()),
		zap.String("account_id", out.AccountID.String()),
		zap.String("rate", rate.String()),
		zap.Int64("credited_cents", creditedCents),
		zap.String("actor_id", actor.ID.String()),
	)
	return out, nil
}

// Reject closes a PENDING report without touching the ledger.
func (s *DepositService) Reject(ctx context.Context, actor authz.Actor, reportID uuid.UUID, reason string) (*models.PaymentReport, error) {
	if err := authz.Require(actor, authz.ReviewDeposits); err != nil {
		return nil, err
	}

	var updated repository.PaymentReport
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		row, err := qtx.GetPaymentReportForUpdate(ctx, reportID)
		if err != nil {
			return notFoundOr(err, "payment report %s", reportID)
		}
		status, err := domain.ParseReportStatus(row.Status)
		if err != nil {
			return err
		}
		next, err := status.Next(domain.ReportReject)
		if err != nil {
			return err
		}

		rows, err := qtx.RejectPaymentReport(ctx, repository.RejectPaymentReportParams{
			ID:           reportID,
			RejecterID:   actor.ID,
			RejectReason: textParam(reason),
		})
		if err != nil {
			return fmt.Errorf("reject payment report: %w", err)
		}
		if err := requirePending(rows, "reject payment report"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityPaymentReport, reportID, &actor.ID, "rejected", status.String(), next.String(),
			auditMetadata(map[string]any{"reason": strings.TrimSpace(reason)})); err != nil {
			return err
		}

		updated, err = qtx.GetPaymentReport(ctx, reportID)
		if err != nil {
			return fmt.Errorf("reload payment report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := toPaymentReport(updated)
	if err != nil {
		return nil, err
	}
	observability.IncrementWorkflowTransition("deposit", "reject")
	publish(ctx, s.events, events.New(events.TypePaymentReportRejected, out.AccountID, out.ID, out))
	return out, nil
}

func (s *DepositService) Get(ctx context.Context, actor authz.Actor, reportID uuid.UUID) (*models.PaymentReport, error) {
	report, err := s.load(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAccount(actor, report.AccountID, authz.ReviewDeposits); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns reports newest first. Reviewers see every account; anyone
// else only sees their own.
func (s *DepositService) List(ctx context.Context, actor authz.Actor, filter PaymentReportFilter) ([]models.PaymentReport, error) {
	accountID, err := scopeToActor(actor, filter.AccountID, authz.ReviewDeposits)
	if err != nil {
		return nil, err
	}
	limit, offset, err := pageBounds(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	params := repository.ListPaymentReportsParams{AccountID: accountID, Limit: limit, Offset: offset}
	if filter.Status != nil {
		status := filter.Status.String()
		params.Status = &status
	}

	ctx, cancel := readContext(ctx)
	defer cancel()
	rows, err := s.store.Queries().ListPaymentReports(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list payment reports: %w", err)
	}
	return toPaymentReports(rows)
}

func (s *DepositService) load(ctx context.Context, reportID uuid.UUID) (*models.PaymentReport, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()
	row, err := s.store.Queries().GetPaymentReport(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "payment report %s", reportID)
	}
	return toPaymentReport(row)
}

// lookupRate resolves the conversion rate for currency. An unknown currency
// is credited at rate 1.
func (s *DepositService) lookupRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if strings.EqualFold(currency, s.referenceCurrency) {
		return decimal.NewFromInt(1), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.rateTimeout)
	defer cancel()

	rate, err := s.rates.Rate(ctx, currency)
	switch {
	case err == nil:
		if !rate.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: provider returned non-positive rate %s for %s", domain.ErrExternalService, rate, currency)
		}
		return rate, nil
	case errors.Is(err, rates.ErrUnknownCurrency):
		zap.L().Warn("no rate configured, crediting at rate 1", zap.String("currency", currency))
		return decimal.NewFromInt(1), nil
	case errors.Is(err, context.DeadlineExceeded):
		return decimal.Zero, fmt.Errorf("%w: rate lookup for %s timed out after %s: %w", domain.ErrExternalService, currency, s.rateTimeout, err)
	default:
		return decimal.Zero, fmt.Errorf("%w: rate lookup for %s: %w", domain.ErrExternalService, currency, err)
	}
}

// scopeToActor resolves which account a listing may cover. Holders of c may
// list any account (nil means all); everyone else is pinned to their own.
func scopeToActor(actor authz.Actor, requested *uuid.UUID, c authz.Capability) (*uuid.UUID, error) {
	if actor.Can(c) {
		return requested, nil
	}
	if !actor.Can(authz.HoldWallet) {
		return nil, authz.Require(actor, c)
	}
	if requested != nil && *requested != actor.ID {
		return nil, fmt.Errorf("%w: account %s is not accessible to %s", domain.ErrPermissionDenied, *requested, actor.ID)
	}
	own := actor.ID
	return &own, nil
}
