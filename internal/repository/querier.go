package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	ApplyAccountDelta(ctx context.Context, arg ApplyAccountDeltaParams) (ApplyAccountDeltaRow, error)
	ApprovePaymentReport(ctx context.Context, arg ApprovePaymentReportParams) (int64, error)
	ConfirmWithdrawalRequest(ctx context.Context, arg ConfirmWithdrawalRequestParams) (int64, error)
	CountPendingWithdrawalRequests(ctx context.Context) (int64, error)
	CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error)
	DeleteExpiredIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
	FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error)
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountLedgerSummary(ctx context.Context, accountID uuid.UUID) (GetAccountLedgerSummaryRow, error)
	GetIdempotencyKey(ctx context.Context, idempotencyKey string) (IdempotencyKey, error)
	GetLedgerEntry(ctx context.Context, id uuid.UUID) (LedgerEntry, error)
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	GetPaymentReport(ctx context.Context, id uuid.UUID) (PaymentReport, error)
	GetPaymentReportForUpdate(ctx context.Context, id uuid.UUID) (PaymentReport, error)
	GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (WithdrawalRequest, error)
	GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (WithdrawalRequest, error)
	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error)
	InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) (LedgerEntry, error)
	InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error)
	InsertPaymentReport(ctx context.Context, arg InsertPaymentReportParams) (PaymentReport, error)
	InsertWithdrawalRequest(ctx context.Context, arg InsertWithdrawalRequestParams) (WithdrawalRequest, error)
	ListAllLedgerEntries(ctx context.Context, arg ListAllLedgerEntriesParams) ([]LedgerEntry, error)
	ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error)
	ListAuditLogByEntity(ctx context.Context, arg ListAuditLogByEntityParams) ([]AuditLog, error)
	ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntry, error)
	ListOrdersByAccount(ctx context.Context, arg ListOrdersByAccountParams) ([]Order, error)
	ListPaymentReports(ctx context.Context, arg ListPaymentReportsParams) ([]PaymentReport, error)
	ListPendingWithdrawalRequests(ctx context.Context, limit int32) ([]WithdrawalRequest, error)
	ListWithdrawalRequests(ctx context.Context, arg ListWithdrawalRequestsParams) ([]WithdrawalRequest, error)
	RejectPaymentReport(ctx context.Context, arg RejectPaymentReportParams) (int64, error)
	RejectWithdrawalRequest(ctx context.Context, arg RejectWithdrawalRequestParams) (int64, error)
	ReleaseIdempotencyKey(ctx context.Context, arg ReleaseIdempotencyKeyParams) (int64, error)
	ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (IdempotencyKey, error)
	SumLedgerByKind(ctx context.Context) ([]SumLedgerByKindRow, error)
	UpdateAccountStatus(ctx context.Context, arg UpdateAccountStatusParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
