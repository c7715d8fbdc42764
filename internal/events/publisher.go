package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// CheckoutCompleted is published when a checkout session reaches its
// terminal confirmed state.
type CheckoutCompleted struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	OrderTotal  float64   `json:"order_total"`
	CouponCode  string    `json:"coupon_code,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// CheckoutAbandoned is published when a session is torn down before
// confirmation.
type CheckoutAbandoned struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Step        string    `json:"step"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

// Publisher emits checkout lifecycle events. Publishing is advisory:
// callers log failures and continue.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by session id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events; used when no broker is configured and
// in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
