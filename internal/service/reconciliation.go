package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reconciliationBatchSize = 200

// ReconciliationService verifies ledger integrity invariants.
type ReconciliationService struct {
	store QueryStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// AccountMismatch is an account whose stored state disagrees with its entries.
type AccountMismatch struct {
	AccountID  uuid.UUID `json:"account_id"`
	Balance    int64     `json:"balance_cents"`
	EntrySum   int64     `json:"entry_sum_cents"`
	LastSeq    int64     `json:"last_seq"`
	EntryCount int64     `json:"entry_count"`
	MaxSeq     int64     `json:"max_seq"`
}

type ReconciliationReport struct {
	AccountsChecked int               `json:"accounts_checked"`
	Mismatches      []AccountMismatch `json:"mismatches"`
	Balanced        bool              `json:"balanced"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
}

// Run checks every account: balance must equal the sum of its entries and
// last_seq must equal both the entry count and the highest seq. Each account
// is read under its row lock so in-flight postings cannot cause false alarms.
func (s *ReconciliationService) Run(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{Mismatches: []AccountMismatch{}, StartedAt: time.Now().UTC()}

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := s.store.Queries().ListAccounts(ctx, repository.ListAccountsParams{
			AfterID: after,
			Limit:   reconciliationBatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}

		for _, account := range batch {
			mismatch, err := s.check(ctx, account.ID)
			if err != nil {
				return nil, err
			}
			report.AccountsChecked++
			if mismatch != nil {
				report.Mismatches = append(report.Mismatches, *mismatch)
			}
		}

		if len(batch) < reconciliationBatchSize {
			break
		}
		after = batch[len(batch)-1].ID
	}

	report.Balanced = len(report.Mismatches) == 0
	report.FinishedAt = time.Now().UTC()
	if report.Balanced {
		zap.L().Info("Ledger Balanced", zap.Int("accounts", report.AccountsChecked))
	}
	return report, nil
}

func (s *ReconciliationService) check(ctx context.Context, accountID uuid.UUID) (*AccountMismatch, error) {
	var mismatch *AccountMismatch
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		account, err := qtx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFoundOr(err, "account %s", accountID)
		}
		summary, err := qtx.GetAccountLedgerSummary(ctx, accountID)
		if err != nil {
			return fmt.Errorf("summarise ledger for %s: %w", accountID, err)
		}

		balanceOK := account.Balance == summary.EntrySum
		sequenceOK := account.LastSeq == summary.EntryCount && account.LastSeq == summary.MaxSeq
		if balanceOK && sequenceOK {
			return nil
		}

		mismatch = &AccountMismatch{
			AccountID:  accountID,
			Balance:    account.Balance,
			EntrySum:   summary.EntrySum,
			LastSeq:    account.LastSeq,
			EntryCount: summary.EntryCount,
			MaxSeq:     summary.MaxSeq,
		}
		if !balanceOK {
			observability.IncrementLedgerImbalance("balance")
		}
		if !sequenceOK {
			observability.IncrementLedgerImbalance("sequence")
		}
		zap.L().Error("CRITICAL: ledger imbalance detected",
			zap.String("account_id", accountID.String()),
			zap.Int64("balance_cents", account.Balance),
			zap.Int64("entry_sum_cents", summary.EntrySum),
			zap.Int64("last_seq", account.LastSeq),
			zap.Int64("entry_count", summary.EntryCount),
			zap.Int64("max_seq", summary.MaxSeq),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mismatch, nil
}

// Check runs reconciliation on behalf of an operator.
func (s *ReconciliationService) Check(ctx context.Context, actor authz.Actor) (*ReconciliationReport, error) {
	if err := authz.Require(actor, authz.ViewLedgerReports); err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
