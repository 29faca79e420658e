package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const ledgerEntryColumns = `id, account_id, seq, amount, kind, note, reference_type, reference_id, created_at`

func scanLedgerEntry(row interface{ Scan(...interface{}) error }) (LedgerEntry, error) {
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Seq,
		&i.Amount,
		&i.Kind,
		&i.Note,
		&i.ReferenceType,
		&i.ReferenceID,
		&i.CreatedAt,
	)
	return i, err
}

const insertLedgerEntry = `-- name: InsertLedgerEntry :one
INSERT INTO ledger_entries (id, account_id, seq, amount, kind, note, reference_type, reference_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + ledgerEntryColumns

type InsertLedgerEntryParams struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Seq           int64
	Amount        int64
	Kind          string
	Note          string
	ReferenceType *string
	ReferenceID   *uuid.UUID
}

func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, insertLedgerEntry,
		arg.ID,
		arg.AccountID,
		arg.Seq,
		arg.Amount,
		arg.Kind,
		arg.Note,
		arg.ReferenceType,
		arg.ReferenceID,
	)
	return scanLedgerEntry(row)
}

const getLedgerEntry = `-- name: GetLedgerEntry :one
SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE id = $1`

func (q *Queries) GetLedgerEntry(ctx context.Context, id uuid.UUID) (LedgerEntry, error) {
	return scanLedgerEntry(q.db.QueryRow(ctx, getLedgerEntry, id))
}

const listLedgerEntries = `-- name: ListLedgerEntries :many
SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
WHERE account_id = $1
  AND ($2::text IS NULL OR kind = $2::text)
  AND ($3::timestamptz IS NULL OR created_at >= $3::timestamptz)
  AND ($4::timestamptz IS NULL OR created_at < $4::timestamptz)
  AND ($5::bigint IS NULL OR seq < $5::bigint)
ORDER BY seq DESC
LIMIT $6`

type ListLedgerEntriesParams struct {
	AccountID uuid.UUID
	Kind      *string
	Since     *time.Time
	Until     *time.Time
	BeforeSeq *int64
	Limit     int32
}

// ListLedgerEntries returns entries newest first. Nil filters are ignored.
func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listLedgerEntries,
		arg.AccountID,
		arg.Kind,
		arg.Since,
		arg.Until,
		arg.BeforeSeq,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		i, err := scanLedgerEntry(rows)
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

const listAllLedgerEntries = `-- name: ListAllLedgerEntries :many
SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
WHERE ($1::text IS NULL OR kind = $1::text)
  AND ($2::text IS NULL
       OR strpos(lower(note), lower($2::text)) > 0
       OR strpos(lower(COALESCE(reference_type, '')), lower($2::text)) > 0
       OR account_id::text = lower($2::text)
       OR reference_id::text = lower($2::text))
  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3::timestamptz, $4::uuid))
ORDER BY created_at DESC, id DESC
LIMIT $5`

type ListAllLedgerEntriesParams struct {
	Kind            *string
	Query           *string
	BeforeCreatedAt *time.Time
	BeforeID        *uuid.UUID
	Limit           int32
}

// ListAllLedgerEntries pages entries across every account, newest first,
// keyed on (created_at, id).
func (q *Queries) ListAllLedgerEntries(ctx context.Context, arg ListAllLedgerEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listAllLedgerEntries,
		arg.Kind,
		arg.Query,
		arg.BeforeCreatedAt,
		arg.BeforeID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		i, err := scanLedgerEntry(rows)
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

const sumLedgerByKind = `-- name: SumLedgerByKind :many
SELECT kind, COALESCE(SUM(amount), 0)::bigint AS total, COUNT(*)::bigint AS entries
FROM ledger_entries
GROUP BY kind
ORDER BY kind`

type SumLedgerByKindRow struct {
	Kind    string
	Total   int64
	Entries int64
}

func (q *Queries) SumLedgerByKind(ctx context.Context) ([]SumLedgerByKindRow, error) {
	rows, err := q.db.Query(ctx, sumLedgerByKind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumLedgerByKindRow
	for rows.Next() {
		var i SumLedgerByKindRow
		if err := rows.Scan(&i.Kind, &i.Total, &i.Entries); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
