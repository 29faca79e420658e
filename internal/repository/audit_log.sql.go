package repository

import (
	"context"

	"github.com/google/uuid"
)

const auditLogColumns = `id, entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at`

func scanAuditLog(row interface{ Scan(...interface{}) error }) (AuditLog, error) {
	var i AuditLog
	err := row.Scan(
		&i.ID,
		&i.EntityType,
		&i.EntityID,
		&i.ActorID,
		&i.Action,
		&i.PrevState,
		&i.NextState,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const insertAuditLog = `-- name: InsertAuditLog :one
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + auditLogColumns

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, insertAuditLog,
		arg.EntityType,
		arg.EntityID,
		arg.ActorID,
		arg.Action,
		arg.PrevState,
		arg.NextState,
		arg.Metadata,
	)
	return scanAuditLog(row)
}

const listAuditLogByEntity = `-- name: ListAuditLogByEntity :many
SELECT ` + auditLogColumns + ` FROM audit_log
WHERE entity_type = $1 AND entity_id = $2
ORDER BY id`

type ListAuditLogByEntityParams struct {
	EntityType string
	EntityID   uuid.UUID
}

func (q *Queries) ListAuditLogByEntity(ctx context.Context, arg ListAuditLogByEntityParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogByEntity, arg.EntityType, arg.EntityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		i, err := scanAuditLog(rows)
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
