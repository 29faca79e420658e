package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes events to a single topic keyed by account id, so one
// account's events stay ordered within a partition.
type Publisher struct {
	writer messageWriter
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					observability.IncrementEventPublish("failed")
					zap.L().Warn("ledger event delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
					return
				}
				observability.IncrementEventPublish("delivered")
			},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		msg, err := newMessage(e)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write ledger events: %w", err)
	}
	return nil
}

func newMessage(e events.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.AccountID.String()),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
	}, nil
}

// Close flushes pending async writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
