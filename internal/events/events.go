// Package events publishes domain events after successful writes. Publishing
// is best effort: a failed publish is logged by the caller and never fails the
// request that produced it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionToggled  = "toggled"
	EntityCategory = "category"
	EntityProduct  = "product"
	EntityCustomer = "customer"
	EntityEmployee = "employee"
)

type Event struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func New(entity, action string, id fmt.Stringer, data any) Event {
	return Event{
		Entity:     entity,
		Action:     action,
		ResourceID: id.String(),
		Topic:      entity + "." + action,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// DefaultPublishTimeout bounds how long Publish may hold up a request while
// broker metadata is looked up.
const DefaultPublishTimeout = 2 * time.Second

// KafkaPublisher writes events asynchronously. Publish returns once the
// message is queued; delivery failures are reported to the logger.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration, log *slog.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			WriteTimeout:           timeout,
			Async:                  true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Warn("failed to deliver events", "count", len(messages), "error", err)
				}
			},
			Transport: &kafka.Transport{DialTimeout: timeout},
		},
		timeout: timeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// encode keys messages by resource id so events for one record stay ordered.
func encode(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.ResourceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(e.Topic)},
		},
		Time: e.OccurredAt,
	}, nil
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
