package repository

import (
	"context"

	"github.com/google/uuid"
)

const withdrawalRequestColumns = `id, account_id, amount, destination, status, hold_entry_id, refund_entry_id, confirmer_id,
    confirmed_at, rejecter_id, rejected_at, reject_reason, created_at, updated_at`

func scanWithdrawalRequest(row interface{ Scan(...interface{}) error }) (WithdrawalRequest, error) {
	var i WithdrawalRequest
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Amount,
		&i.Destination,
		&i.Status,
		&i.HoldEntryID,
		&i.RefundEntryID,
		&i.ConfirmerID,
		&i.ConfirmedAt,
		&i.RejecterID,
		&i.RejectedAt,
		&i.RejectReason,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectWithdrawalRequests(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]WithdrawalRequest, error) {
	var items []WithdrawalRequest
	for rows.Next() {
		i, err := scanWithdrawalRequest(rows)
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

const insertWithdrawalRequest = `-- name: InsertWithdrawalRequest :one
INSERT INTO withdrawal_requests (id, account_id, amount, destination, status, hold_entry_id)
VALUES ($1, $2, $3, $4, 'PENDING', $5)
RETURNING ` + withdrawalRequestColumns

type InsertWithdrawalRequestParams struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Amount      int64
	Destination []byte
	HoldEntryID uuid.UUID
}

func (q *Queries) InsertWithdrawalRequest(ctx context.Context, arg InsertWithdrawalRequestParams) (WithdrawalRequest, error) {
	row := q.db.QueryRow(ctx, insertWithdrawalRequest,
		arg.ID,
		arg.AccountID,
		arg.Amount,
		arg.Destination,
		arg.HoldEntryID,
	)
	return scanWithdrawalRequest(row)
}

const getWithdrawalRequest = `-- name: GetWithdrawalRequest :one
SELECT ` + withdrawalRequestColumns + ` FROM withdrawal_requests WHERE id = $1`

func (q *Queries) GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (WithdrawalRequest, error) {
	return scanWithdrawalRequest(q.db.QueryRow(ctx, getWithdrawalRequest, id))
}

const getWithdrawalRequestForUpdate = `-- name: GetWithdrawalRequestForUpdate :one
SELECT ` + withdrawalRequestColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

func (q *Queries) GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (WithdrawalRequest, error) {
	return scanWithdrawalRequest(q.db.QueryRow(ctx, getWithdrawalRequestForUpdate, id))
}

const confirmWithdrawalRequest = `-- name: ConfirmWithdrawalRequest :execrows
UPDATE withdrawal_requests
SET status = 'CONFIRMED',
    confirmer_id = $2,
    confirmed_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

type ConfirmWithdrawalRequestParams struct {
	ID          uuid.UUID
	ConfirmerID uuid.UUID
}

func (q *Queries) ConfirmWithdrawalRequest(ctx context.Context, arg ConfirmWithdrawalRequestParams) (int64, error) {
	result, err := q.db.Exec(ctx, confirmWithdrawalRequest, arg.ID, arg.ConfirmerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const rejectWithdrawalRequest = `-- name: RejectWithdrawalRequest :execrows
UPDATE withdrawal_requests
SET status = 'REJECTED',
    rejecter_id = $2,
    reject_reason = $3,
    refund_entry_id = $4,
    rejected_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

type RejectWithdrawalRequestParams struct {
	ID            uuid.UUID
	RejecterID    uuid.UUID
	RejectReason  *string
	RefundEntryID uuid.UUID
}

func (q *Queries) RejectWithdrawalRequest(ctx context.Context, arg RejectWithdrawalRequestParams) (int64, error) {
	result, err := q.db.Exec(ctx, rejectWithdrawalRequest,
		arg.ID,
		arg.RejecterID,
		arg.RejectReason,
		arg.RefundEntryID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listWithdrawalRequests = `-- name: ListWithdrawalRequests :many
SELECT ` + withdrawalRequestColumns + ` FROM withdrawal_requests
WHERE ($1::uuid IS NULL OR account_id = $1::uuid)
  AND ($2::text IS NULL OR status = $2::text)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

type ListWithdrawalRequestsParams struct {
	AccountID *uuid.UUID
	Status    *string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListWithdrawalRequests(ctx context.Context, arg ListWithdrawalRequestsParams) ([]WithdrawalRequest, error) {
	rows, err := q.db.Query(ctx, listWithdrawalRequests, arg.AccountID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawalRequests(rows)
}

const listPendingWithdrawalRequests = `-- name: ListPendingWithdrawalRequests :many
SELECT ` + withdrawalRequestColumns + ` FROM withdrawal_requests
WHERE status = 'PENDING'
ORDER BY created_at, id
LIMIT $1`

// ListPendingWithdrawalRequests is the review queue, oldest first.
func (q *Queries) ListPendingWithdrawalRequests(ctx context.Context, limit int32) ([]WithdrawalRequest, error) {
	rows, err := q.db.Query(ctx, listPendingWithdrawalRequests, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawalRequests(rows)
}

const countPendingWithdrawalRequests = `-- name: CountPendingWithdrawalRequests :one
SELECT COUNT(*)::bigint FROM withdrawal_requests WHERE status = 'PENDING'`

func (q *Queries) CountPendingWithdrawalRequests(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPendingWithdrawalRequests).Scan(&count)
	return count, err
}
