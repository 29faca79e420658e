package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarshalsPayload(t *testing.T) {
	account := uuid.New()
	entity := uuid.New()
	e := New(TypeEntryPosted, account, entity, map[string]any{"amount_cents": 1500, "kind": "DEPOSIT"})

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, account, e.AccountID)
	assert.Equal(t, entity, e.EntityID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(e.Payload, &body))
	assert.Equal(t, "DEPOSIT", body["kind"])
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(),
		New(TypeWithdrawalRequested, uuid.New(), uuid.New(), nil),
		New(TypeEntryPosted, uuid.New(), uuid.New(), nil),
	))
	assert.Equal(t, []string{TypeWithdrawalRequested, TypeEntryPosted}, r.Types())
	assert.Len(t, r.Events(), 2)
	require.NoError(t, NopPublisher{}.Publish(context.Background()))
}
