package service

import (
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
)

func toAccount(row repository.Account) *models.Account {
	return &models.Account{
		ID:           row.ID,
		Currency:     row.Currency,
		BalanceCents: row.Balance,
		Balance:      domain.FormatCents(row.Balance),
		LastSeq:      row.LastSeq,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toLedgerEntry(row repository.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		ID:            row.ID,
		AccountID:     row.AccountID,
		Seq:           row.Seq,
		AmountCents:   row.Amount,
		Amount:        domain.FormatCents(row.Amount),
		Kind:          domain.EntryKind(row.Kind),
		Note:          row.Note,
		ReferenceType: row.ReferenceType,
		ReferenceID:   row.ReferenceID,
		CreatedAt:     row.CreatedAt,
	}
}

func toOrder(row repository.Order) *models.Order {
	return &models.Order{
		ID:          row.ID,
		AccountID:   row.AccountID,
		AmountCents: row.Amount,
		Amount:      domain.FormatCents(row.Amount),
		Status:      row.Status,
		Note:        row.Note,
		EntryID:     row.EntryID,
		CreatedAt:   row.CreatedAt,
	}
}

func toPaymentReport(row repository.PaymentReport) (*models.PaymentReport, error) {
	status, err := domain.ParseReportStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("payment report %s: %w", row.ID, err)
	}
	out := &models.PaymentReport{
		ID:            row.ID,
		AccountID:     row.AccountID,
		ClaimedAmount: row.ClaimedAmount,
		Currency:      row.Currency,
		Method:        row.Method,
		ProofRef:      row.ProofRef,
		Note:          row.Note,
		Status:        status,
		CreditedCents: row.CreditedAmount,
		EntryID:       row.EntryID,
		ApproverID:    row.ApproverID,
		ApprovedAt:    row.ApprovedAt,
		RejecterID:    row.RejecterID,
		RejectedAt:    row.RejectedAt,
		RejectReason:  row.RejectReason,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.Rate.Valid {
		rate := row.Rate.Decimal
		out.Rate = &rate
	}
	return out, nil
}

func toPaymentReports(rows []repository.PaymentReport) ([]models.PaymentReport, error) {
	out := make([]models.PaymentReport, 0, len(rows))
	for _, row := range rows {
		r, err := toPaymentReport(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func toWithdrawal(row repository.WithdrawalRequest) (*models.Withdrawal, error) {
	status, err := domain.ParseWithdrawalStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("withdrawal %s: %w", row.ID, err)
	}
	var dest models.WithdrawalDestination
	if len(row.Destination) > 0 {
		if err := json.Unmarshal(row.Destination, &dest); err != nil {
			return nil, fmt.Errorf("decode withdrawal %s destination: %w", row.ID, err)
		}
	}
	return &models.Withdrawal{
		ID:            row.ID,
		AccountID:     row.AccountID,
		AmountCents:   row.Amount,
		Amount:        domain.FormatCents(row.Amount),
		Destination:   dest,
		Status:        status,
		HoldEntryID:   row.HoldEntryID,
		RefundEntryID: row.RefundEntryID,
		ConfirmerID:   row.ConfirmerID,
		ConfirmedAt:   row.ConfirmedAt,
		RejecterID:    row.RejecterID,
		RejectedAt:    row.RejectedAt,
		RejectReason:  row.RejectReason,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func toWithdrawals(rows []repository.WithdrawalRequest) ([]models.Withdrawal, error) {
	out := make([]models.Withdrawal, 0, len(rows))
	for _, row := range rows {
		w, err := toWithdrawal(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}
