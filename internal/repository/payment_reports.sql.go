package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const paymentReportColumns = `id, account_id, claimed_amount, currency, method, proof_ref, note, status, rate, credited_amount,
    entry_id, approver_id, approved_at, rejecter_id, rejected_at, reject_reason, created_at, updated_at`

func scanPaymentReport(row interface{ Scan(...interface{}) error }) (PaymentReport, error) {
	var i PaymentReport
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.ClaimedAmount,
		&i.Currency,
		&i.Method,
		&i.ProofRef,
		&i.Note,
		&i.Status,
		&i.Rate,
		&i.CreditedAmount,
		&i.EntryID,
		&i.ApproverID,
		&i.ApprovedAt,
		&i.RejecterID,
		&i.RejectedAt,
		&i.RejectReason,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertPaymentReport = `-- name: InsertPaymentReport :one
INSERT INTO payment_reports (id, account_id, claimed_amount, currency, method, proof_ref, note, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING')
RETURNING ` + paymentReportColumns

type InsertPaymentReportParams struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	ClaimedAmount decimal.Decimal
	Currency      string
	Method        string
	ProofRef      *string
	Note          *string
}

func (q *Queries) InsertPaymentReport(ctx context.Context, arg InsertPaymentReportParams) (PaymentReport, error) {
	row := q.db.QueryRow(ctx, insertPaymentReport,
		arg.ID,
		arg.AccountID,
		arg.ClaimedAmount,
		arg.Currency,
		arg.Method,
		arg.ProofRef,
		arg.Note,
	)
	return scanPaymentReport(row)
}

const getPaymentReport = `-- name: GetPaymentReport :one
SELECT ` + paymentReportColumns + ` FROM payment_reports WHERE id = $1`

func (q *Queries) GetPaymentReport(ctx context.Context, id uuid.UUID) (PaymentReport, error) {
	return scanPaymentReport(q.db.QueryRow(ctx, getPaymentReport, id))
}

const getPaymentReportForUpdate = `-- name: GetPaymentReportForUpdate :one
SELECT ` + paymentReportColumns + ` FROM payment_reports WHERE id = $1 FOR UPDATE`

func (q *Queries) GetPaymentReportForUpdate(ctx context.Context, id uuid.UUID) (PaymentReport, error) {
	return scanPaymentReport(q.db.QueryRow(ctx, getPaymentReportForUpdate, id))
}

const approvePaymentReport = `-- name: ApprovePaymentReport :execrows
UPDATE payment_reports
SET status = 'APPROVED',
    rate = $2,
    credited_amount = $3,
    entry_id = $4,
    approver_id = $5,
    approved_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

type ApprovePaymentReportParams struct {
	ID             uuid.UUID
	Rate           decimal.Decimal
	CreditedAmount int64
	EntryID        uuid.UUID
	ApproverID     uuid.UUID
}

func (q *Queries) ApprovePaymentReport(ctx context.Context, arg ApprovePaymentReportParams) (int64, error) {
	result, err := q.db.Exec(ctx, approvePaymentReport,
		arg.ID,
		arg.Rate,
		arg.CreditedAmount,
		arg.EntryID,
		arg.ApproverID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const rejectPaymentReport = `-- name: RejectPaymentReport :execrows
UPDATE payment_reports
SET status = 'REJECTED',
    rejecter_id = $2,
    reject_reason = $3,
    rejected_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

type RejectPaymentReportParams struct {
	ID           uuid.UUID
	RejecterID   uuid.UUID
	RejectReason *string
}

func (q *Queries) RejectPaymentReport(ctx context.Context, arg RejectPaymentReportParams) (int64, error) {
	result, err := q.db.Exec(ctx, rejectPaymentReport, arg.ID, arg.RejecterID, arg.RejectReason)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listPaymentReports = `-- name: ListPaymentReports :many
SELECT ` + paymentReportColumns + ` FROM payment_reports
WHERE ($1::uuid IS NULL OR account_id = $1::uuid)
  AND ($2::text IS NULL OR status = $2::text)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

type ListPaymentReportsParams struct {
	AccountID *uuid.UUID
	Status    *string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListPaymentReports(ctx context.Context, arg ListPaymentReportsParams) ([]PaymentReport, error) {
	rows, err := q.db.Query(ctx, listPaymentReports, arg.AccountID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentReport
	for rows.Next() {
		i, err := scanPaymentReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
