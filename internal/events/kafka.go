package events

import (
	"context"
	"encoding/json"
	"fmt"

	"carbonmint/internal/platform/kafka/consumer"
	"carbonmint/internal/platform/kafka/producer"
)

const headerEventType = "event_type"

// MessageProducer is the subset of producer.Producer the publisher needs.
type MessageProducer interface {
	Produce(ctx context.Context, msgs ...producer.Message) error
}

// KafkaPublisher writes events to a topic keyed by aggregate id, so all
// events of one credit, batch, or ledger land on the same partition in order.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaPublisher(p MessageProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, batch []Event) error {
	msgs := make([]producer.Message, 0, len(batch))
	for _, e := range batch {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		msgs = append(msgs, producer.Message{
			Topic:   p.topic,
			Key:     []byte(e.AggregateID),
			Value:   value,
			Headers: map[string]string{headerEventType: string(e.Type)},
		})
	}
	return p.producer.Produce(ctx, msgs...)
}

// Dispatcher delivers a decoded event to local handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

// ConsumerHandler decodes Kafka records back into events and hands them to a
// Dispatcher, typically a Bus with the verifier worker subscribed.
type ConsumerHandler struct {
	dispatcher Dispatcher
}

func NewConsumerHandler(d Dispatcher) *ConsumerHandler {
	return &ConsumerHandler{dispatcher: d}
}

func (h *ConsumerHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return fmt.Errorf("decode event at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	return h.dispatcher.Dispatch(ctx, e)
}
