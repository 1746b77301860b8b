package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher implements usecase.Publisher with synchronous produces.
type Publisher struct {
	client producer
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *kgo.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish produces one record and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %s: %w", topic, err)
	}
	return nil
}
