// Package notify publishes created orders for downstream consumers (the
// florist dashboard, fulfillment). Publishing is best-effort and must never
// block or fail an order.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/erazemk/cvetlicarna/internal/model"
)

// Noop discards order notifications; used when no broker is configured.
type Noop struct{}

// OrderCreated does nothing.
func (Noop) OrderCreated(ctx context.Context, order *model.Order) error {
	return nil
}

// Kafka publishes created orders to a topic, keyed by order id.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a Kafka notifier with an async writer, so publishing
// never delays the conversation.
func NewKafka(broker, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

// OrderCreated publishes the order as JSON.
func (k *Kafka) OrderCreated(ctx context.Context, order *model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publishing order: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
