package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
)

const (
	auditEntityAccount       = "account"
	auditEntityOrder         = "order"
	auditEntityPaymentReport = "payment_report"
	auditEntityWithdrawal    = "withdrawal"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, qtx repository.Querier, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if _, err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// History returns an entity's audit trail, oldest first.
func (s *AuditService) History(ctx context.Context, entityType string, entityID uuid.UUID) ([]repository.AuditLog, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()
	rows, err := s.store.Queries().ListAuditLogByEntity(ctx, repository.ListAuditLogByEntityParams{
		EntityType: entityType,
		EntityID:   entityID,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return rows, nil
}

func auditMetadata(fields map[string]any) []byte {
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return raw
}
