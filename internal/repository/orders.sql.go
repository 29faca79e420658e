package repository

import (
	"context"

	"github.com/google/uuid"
)

const orderColumns = `id, account_id, amount, status, note, entry_id, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Amount,
		&i.Status,
		&i.Note,
		&i.EntryID,
		&i.CreatedAt,
	)
	return i, err
}

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (id, account_id, amount, status, note, entry_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

type InsertOrderParams struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    int64
	Status    string
	Note      *string
	EntryID   uuid.UUID
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.ID,
		arg.AccountID,
		arg.Amount,
		arg.Status,
		arg.Note,
		arg.EntryID,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrdersByAccount = `-- name: ListOrdersByAccount :many
SELECT ` + orderColumns + ` FROM orders
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

type ListOrdersByAccountParams struct {
	AccountID uuid.UUID
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrdersByAccount(ctx context.Context, arg ListOrdersByAccountParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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
