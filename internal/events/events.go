// Package events describes the notifications emitted after ledger
// mutations commit. Delivery is best-effort and never affects the
// committed result.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeEntryPosted            = "ledger.entry_posted"
	TypeAccountCredited        = "account.credited"
	TypeOrderPlaced            = "order.placed"
	TypePaymentReportSubmitted = "payment_report.submitted"
	TypePaymentReportApproved  = "payment_report.approved"
	TypePaymentReportRejected  = "payment_report.rejected"
	TypeWithdrawalRequested    = "withdrawal.requested"
	TypeWithdrawalConfirmed    = "withdrawal.confirmed"
	TypeWithdrawalRejected     = "withdrawal.rejected"
)

type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	AccountID  uuid.UUID       `json:"account_id"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event, marshalling payload as its body. A payload that
// cannot be marshalled is dropped rather than failing the caller.
func New(eventType string, accountID, entityID uuid.UUID, payload any) Event {
	e := Event{
		ID:         uuid.New(),
		Type:       eventType,
		AccountID:  accountID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
