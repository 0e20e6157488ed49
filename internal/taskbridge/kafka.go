package taskbridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsdesk/fulfillment-service/pkg/clock"
	kafka "github.com/segmentio/kafka-go"
)

// KafkaBridge publishes task envelopes to the worker topic.
type KafkaBridge struct {
	writer *kafka.Writer
	clock  clock.Clock
}

func NewKafkaBridge(brokers []string, topic string, clk clock.Clock) *KafkaBridge {
	return &KafkaBridge{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		clock: clk,
	}
}

func (b *KafkaBridge) Close() error {
	return b.writer.Close()
}

func (b *KafkaBridge) Enqueue(ctx context.Context, task string, args map[string]string) error {
	return b.publish(ctx, Envelope{
		Task:       task,
		Args:       args,
		EnqueuedAt: b.clock.Now(),
	})
}

func (b *KafkaBridge) EnqueueAt(ctx context.Context, task string, args map[string]string, eta time.Time) error {
	return b.publish(ctx, Envelope{
		Task:       task,
		Args:       args,
		ETA:        &eta,
		EnqueuedAt: b.clock.Now(),
	})
}

func (b *KafkaBridge) publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.Task),
		Value: value,
	})
}
