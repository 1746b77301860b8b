package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/iho/centralledger/internal/usecase"
)

type fakeFetcher struct {
	mu        sync.Mutex
	polls     []kgo.Fetches
	committed []*kgo.Record
	rewound   map[string]map[int32]kgo.EpochOffset
	allowed   int
	cancel    context.CancelFunc
}

func (f *fakeFetcher) PollFetches(ctx context.Context) kgo.Fetches {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.polls) == 0 {
		f.cancel()
		return nil
	}
	next := f.polls[0]
	f.polls = f.polls[1:]
	return next
}

func (f *fakeFetcher) CommitRecords(ctx context.Context, rs ...*kgo.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, rs...)
	return nil
}

func (f *fakeFetcher) SetOffsets(offsets map[string]map[int32]kgo.EpochOffset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewound = offsets
}

func (f *fakeFetcher) AllowRebalance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed++
}

func records(topic string, partition int32, offsets ...int64) []*kgo.Record {
	out := make([]*kgo.Record, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, &kgo.Record{Topic: topic, Partition: partition, Offset: o, Key: []byte("dfsp1/USD"), Value: []byte("{}")})
	}
	return out
}

func fetchOf(topic string, parts map[int32][]*kgo.Record) kgo.Fetches {
	ft := kgo.FetchTopic{Topic: topic}
	for p, rs := range parts {
		ft.Partitions = append(ft.Partitions, kgo.FetchPartition{Partition: p, Records: rs})
	}
	return kgo.Fetches{{Topics: []kgo.FetchTopic{ft}}}
}

func offsetsOf(rs []*kgo.Record) map[int32][]int64 {
	out := map[int32][]int64{}
	for _, r := range rs {
		out[r.Partition] = append(out[r.Partition], r.Offset)
	}
	return out
}

func runConsumer(t *testing.T, f *fakeFetcher, handle usecase.MessageHandler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.cancel = cancel

	c := newConsumer(f, zerolog.Nop())
	c.retryBackoff = 0
	require.NoError(t, c.Consume(ctx, handle))
}

func TestConsumerCommitsHandledRecords(t *testing.T) {
	f := &fakeFetcher{polls: []kgo.Fetches{
		fetchOf("topic-transfer-position", map[int32][]*kgo.Record{
			0: records("topic-transfer-position", 0, 10, 11),
			1: records("topic-transfer-position", 1, 5),
		}),
	}}

	var mu sync.Mutex
	seen := map[int32][]int64{}
	runConsumer(t, f, func(ctx context.Context, msg *usecase.Message) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []byte("dfsp1/USD"), msg.Key)
		seen[msg.Partition] = append(seen[msg.Partition], msg.Offset)
		return nil
	})

	assert.Equal(t, map[int32][]int64{0: {10, 11}, 1: {5}}, seen)
	assert.Equal(t, map[int32][]int64{0: {10, 11}, 1: {5}}, offsetsOf(f.committed))
	assert.Nil(t, f.rewound)
	assert.Equal(t, 1, f.allowed)
}

func TestConsumerRewindsFailedPartition(t *testing.T) {
	f := &fakeFetcher{polls: []kgo.Fetches{
		fetchOf("topic-transfer-position", map[int32][]*kgo.Record{
			0: records("topic-transfer-position", 0, 10, 11, 12),
			1: records("topic-transfer-position", 1, 5, 6),
		}),
	}}

	var mu sync.Mutex
	var handled []int64
	runConsumer(t, f, func(ctx context.Context, msg *usecase.Message) error {
		if msg.Partition == 0 && msg.Offset == 11 {
			return errors.New("datastore unavailable")
		}
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg.Offset)
		return nil
	})

	assert.NotContains(t, handled, int64(12), "records after a failure must wait for redelivery")
	assert.Equal(t, map[int32][]int64{0: {10}, 1: {5, 6}}, offsetsOf(f.committed))
	require.Contains(t, f.rewound, "topic-transfer-position")
	assert.Equal(t, int64(11), f.rewound["topic-transfer-position"][0].Offset)
	assert.NotContains(t, f.rewound["topic-transfer-position"], int32(1))
}

func TestConsumerStopsWhenClientClosed(t *testing.T) {
	closed := kgo.Fetches{{Topics: []kgo.FetchTopic{{Partitions: []kgo.FetchPartition{{Err: kgo.ErrClientClosed}}}}}}
	f := &fakeFetcher{polls: []kgo.Fetches{closed}}

	called := false
	runConsumer(t, f, func(ctx context.Context, msg *usecase.Message) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Empty(t, f.committed)
}
