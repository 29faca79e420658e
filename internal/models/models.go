package models

import (
	"errors"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balance_cents"`
	Balance      string    `json:"balance"`
	LastSeq      int64     `json:"last_seq"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type LedgerEntry struct {
	ID            uuid.UUID        `json:"id"`
	AccountID     uuid.UUID        `json:"account_id"`
	Seq           int64            `json:"seq"`
	AmountCents   int64            `json:"amount_cents"` // signed: credit > 0, debit < 0
	Amount        string           `json:"amount"`
	Kind          domain.EntryKind `json:"kind"`
	Note          string           `json:"note"`
	ReferenceType *string          `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID       `json:"reference_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type Order struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Note        *string   `json:"note,omitempty"`
	EntryID     uuid.UUID `json:"entry_id"`
	CreatedAt   time.Time `json:"created_at"`
}

const OrderStatusPaid = "PAID"

type PaymentReport struct {
	ID            uuid.UUID           `json:"id"`
	AccountID     uuid.UUID           `json:"account_id"`
	ClaimedAmount decimal.Decimal     `json:"claimed_amount"`
	Currency      string              `json:"currency"`
	Method        string              `json:"method"`
	ProofRef      *string             `json:"proof_ref,omitempty"`
	Note          *string             `json:"note,omitempty"`
	Status        domain.ReportStatus `json:"status"`
	Rate          *decimal.Decimal    `json:"rate,omitempty"`
	CreditedCents *int64              `json:"credited_cents,omitempty"`
	EntryID       *uuid.UUID          `json:"entry_id,omitempty"`
	ApproverID    *uuid.UUID          `json:"approver_id,omitempty"`
	ApprovedAt    *time.Time          `json:"approved_at,omitempty"`
	RejecterID    *uuid.UUID          `json:"rejecter_id,omitempty"`
	RejectedAt    *time.Time          `json:"rejected_at,omitempty"`
	RejectReason  *string             `json:"reject_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// WithdrawalDestination is where the reviewer sends confirmed funds.
type WithdrawalDestination struct {
	Bank          string `json:"bank"`
	AccountNumber string `json:"account_number"`
	Holder        string `json:"holder"`
	Details       string `json:"details,omitempty"`
}

// Validate ensures the destination contains the required fields.
func (d WithdrawalDestination) Validate() error {
	if strings.TrimSpace(d.Bank) == "" {
		return errors.New("destination.bank is required")
	}
	if strings.TrimSpace(d.AccountNumber) == "" {
		return errors.New("destination.account_number is required")
	}
	if strings.TrimSpace(d.Holder) == "" {
		return errors.New("destination.holder is required")
	}
	return nil
}

type Withdrawal struct {
	ID            uuid.UUID               `json:"id"`
	AccountID     uuid.UUID               `json:"account_id"`
	AmountCents   int64                   `json:"amount_cents"`
	Amount        string                  `json:"amount"`
	Destination   WithdrawalDestination   `json:"destination"`
	Status        domain.WithdrawalStatus `json:"status"`
	HoldEntryID   uuid.UUID               `json:"hold_entry_id"`
	RefundEntryID *uuid.UUID              `json:"refund_entry_id,omitempty"`
	ConfirmerID   *uuid.UUID              `json:"confirmer_id,omitempty"`
	ConfirmedAt   *time.Time              `json:"confirmed_at,omitempty"`
	RejecterID    *uuid.UUID              `json:"rejecter_id,omitempty"`
	RejectedAt    *time.Time              `json:"rejected_at,omitempty"`
	RejectReason  *string                 `json:"reject_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// KindTotal aggregates the ledger for one entry kind.
type KindTotal struct {
	Kind       domain.EntryKind `json:"kind"`
	TotalCents int64            `json:"total_cents"`
	Total      string           `json:"total"`
	Entries    int64            `json:"entries"`
}

// LedgerTotals is the utilities report across all accounts.
type LedgerTotals struct {
	Kinds          []KindTotal `json:"kinds"`
	DepositedCents int64       `json:"deposited_cents"`
	WithdrawnCents int64       `json:"withdrawn_cents"`
	NetCents       int64       `json:"net_cents"`
}
