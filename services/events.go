package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Payment lifecycle event types
const (
	EventCheckoutCreated   = "payment.checkout_created"
	EventPaymentCompleted  = "payment.completed"
	EventPaymentSucceeded  = "payment.succeeded"
	EventPaymentFailed     = "payment.failed"
	EventPaymentRefunded   = "payment.refunded"
	EventPaymentPartRefund = "payment.partially_refunded"
)

// PaymentEvent is published whenever a payment changes state
type PaymentEvent struct {
	Type          string    `json:"type"`
	PaymentID     string    `json:"paymentId"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	Status        string    `json:"status"`
	QuoteID       string    `json:"quoteId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// EventPublisher ships domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// KafkaPublisher writes JSON events to one Kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
func (noopPublisher) Close() error                               { return nil }
