package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/iho/centralledger/internal/usecase"
)

type fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	SetOffsets(offsets map[string]map[int32]kgo.EpochOffset)
	AllowRebalance()
}

// Consumer implements usecase.Consumer on a franz-go group client.
//
// Partitions of a poll are handled concurrently and records within a
// partition strictly in order. A record is committed only after its handler
// returns nil. On failure the partition is rewound to the failed record and
// the rest of its batch is skipped, so it is redelivered on the next poll.
type Consumer struct {
	client       fetcher
	logger       zerolog.Logger
	retryBackoff time.Duration
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *kgo.Client, logger zerolog.Logger) *Consumer {
	return newConsumer(client, logger)
}

func newConsumer(client fetcher, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:       client,
		logger:       logger.With().Str("component", "kafka-consumer").Logger(),
		retryBackoff: 500 * time.Millisecond,
	}
}

// Consume polls until ctx is done or the client is closed.
func (c *Consumer) Consume(ctx context.Context, handle usecase.MessageHandler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch failed")
		})

		failed := c.handleFetches(ctx, fetches, handle)
		c.client.AllowRebalance()

		if failed {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryBackoff):
			}
		}
	}
}

// handleFetches processes one poll and reports whether any partition was rewound.
func (c *Consumer) handleFetches(ctx context.Context, fetches kgo.Fetches, handle usecase.MessageHandler) bool {
	var (
		mu     sync.Mutex
		done   []*kgo.Record
		rewind = map[string]map[int32]kgo.EpochOffset{}
	)

	var wg conc.WaitGroup
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		if len(p.Records) == 0 {
			return
		}
		wg.Go(func() {
			handled, failedAt := c.handlePartition(ctx, p, handle)

			mu.Lock()
			defer mu.Unlock()
			done = append(done, handled...)
			if failedAt != nil {
				if rewind[failedAt.Topic] == nil {
					rewind[failedAt.Topic] = map[int32]kgo.EpochOffset{}
				}
				rewind[failedAt.Topic][failedAt.Partition] = kgo.EpochOffset{
					Epoch:  failedAt.LeaderEpoch,
					Offset: failedAt.Offset,
				}
			}
		})
	})
	wg.Wait()

	if len(done) > 0 {
		if err := c.client.CommitRecords(ctx, done...); err != nil {
			c.logger.Error().Err(err).Int("records", len(done)).Msg("commit failed")
		}
	}
	if len(rewind) > 0 {
		c.client.SetOffsets(rewind)
	}

	return len(rewind) > 0
}

// handlePartition returns the records handled successfully and the first
// record that failed, if any.
func (c *Consumer) handlePartition(ctx context.Context, p kgo.FetchTopicPartition, handle usecase.MessageHandler) ([]*kgo.Record, *kgo.Record) {
	handled := make([]*kgo.Record, 0, len(p.Records))

	for _, r := range p.Records {
		if ctx.Err() != nil {
			return handled, r
		}

		err := handle(ctx, &usecase.Message{
			Topic:     r.Topic,
			Key:       r.Key,
			Value:     r.Value,
			Partition: r.Partition,
			Offset:    r.Offset,
			Timestamp: r.Timestamp,
		})
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("topic", r.Topic).
				Int32("partition", r.Partition).
				Int64("offset", r.Offset).
				Msg("handler failed, partition will be redelivered")
			return handled, r
		}

		handled = append(handled, r)
	}

	return handled, nil
}
