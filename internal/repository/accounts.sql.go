package repository

import (
	"context"

	"github.com/google/uuid"
)

const accountColumns = `id, currency, balance, last_seq, status, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Currency,
		&i.Balance,
		&i.LastSeq,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, currency, status)
VALUES ($1, $2, $3)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID       uuid.UUID
	Currency string
	Status   string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, createAccount, arg.ID, arg.Currency, arg.Status))
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccount, id))
}

const getAccountForUpdate = `-- name: GetAccountForUpdate :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

func (q *Queries) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountForUpdate, id))
}

const applyAccountDelta = `-- name: ApplyAccountDelta :one
UPDATE accounts
SET balance = balance + $2,
    last_seq = last_seq + 1,
    updated_at = NOW()
WHERE id = $1
RETURNING balance, last_seq`

type ApplyAccountDeltaParams struct {
	ID    uuid.UUID
	Delta int64
}

type ApplyAccountDeltaRow struct {
	Balance int64
	LastSeq int64
}

// ApplyAccountDelta moves the balance and allocates the next entry sequence
// number. The caller must hold the row lock.
func (q *Queries) ApplyAccountDelta(ctx context.Context, arg ApplyAccountDeltaParams) (ApplyAccountDeltaRow, error) {
	row := q.db.QueryRow(ctx, applyAccountDelta, arg.ID, arg.Delta)
	var i ApplyAccountDeltaRow
	err := row.Scan(&i.Balance, &i.LastSeq)
	return i, err
}

const updateAccountStatus = `-- name: UpdateAccountStatus :execrows
UPDATE accounts
SET status = $2,
    updated_at = NOW()
WHERE id = $1`

type UpdateAccountStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateAccountStatus(ctx context.Context, arg UpdateAccountStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAccountStatus, arg.ID, arg.Status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts
WHERE id > $1
ORDER BY id
LIMIT $2`

type ListAccountsParams struct {
	AfterID uuid.UUID
	Limit   int32
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
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

const getAccountLedgerSummary = `-- name: GetAccountLedgerSummary :one
SELECT COUNT(*)::bigint AS entry_count,
       COALESCE(SUM(amount), 0)::bigint AS entry_sum,
       COALESCE(MAX(seq), 0)::bigint AS max_seq
FROM ledger_entries
WHERE account_id = $1`

type GetAccountLedgerSummaryRow struct {
	EntryCount int64
	EntrySum   int64
	MaxSeq     int64
}

func (q *Queries) GetAccountLedgerSummary(ctx context.Context, accountID uuid.UUID) (GetAccountLedgerSummaryRow, error) {
	row := q.db.QueryRow(ctx, getAccountLedgerSummary, accountID)
	var i GetAccountLedgerSummaryRow
	err := row.Scan(&i.EntryCount, &i.EntrySum, &i.MaxSeq)
	return i, err
}
