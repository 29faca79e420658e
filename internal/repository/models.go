package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID        uuid.UUID
	Currency  string
	Balance   int64
	LastSeq   int64
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AuditLog struct {
	ID         int64
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
	CreatedAt  time.Time
}

type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LedgerEntry struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Seq           int64
	Amount        int64
	Kind          string
	Note          string
	ReferenceType *string
	ReferenceID   *uuid.UUID
	CreatedAt     time.Time
}

type Order struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    int64
	Status    string
	Note      *string
	EntryID   uuid.UUID
	CreatedAt time.Time
}

type PaymentReport struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	ClaimedAmount  decimal.Decimal
	Currency       string
	Method         string
	ProofRef       *string
	Note           *string
	Status         string
	Rate           decimal.NullDecimal
	CreditedAmount *int64
	EntryID        *uuid.UUID
	ApproverID     *uuid.UUID
	ApprovedAt     *time.Time
	RejecterID     *uuid.UUID
	RejectedAt     *time.Time
	RejectReason   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type WithdrawalRequest struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Amount        int64
	Destination   []byte
	Status        string
	HoldEntryID   uuid.UUID
	RefundEntryID *uuid.UUID
	ConfirmerID   *uuid.UUID
	ConfirmedAt   *time.Time
	RejecterID    *uuid.UUID
	RejectedAt    *time.Time
	RejectReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
