package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestPublisherPublish(t *testing.T) {
	fp := &fakeProducer{}
	p := &Publisher{client: fp}

	require.NoError(t, p.Publish(context.Background(), "topic-transfer-position", "dfsp1/USD", []byte(`{"action":"prepare"}`)))

	require.Len(t, fp.records, 1)
	assert.Equal(t, "topic-transfer-position", fp.records[0].Topic)
	assert.Equal(t, []byte("dfsp1/USD"), fp.records[0].Key)
}

func TestPublisherPublishError(t *testing.T) {
	brokerErr := errors.New("not enough replicas")
	p := &Publisher{client: &fakeProducer{err: brokerErr}}

	err := p.Publish(context.Background(), "topic-notification-event", "t-1", nil)
	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "topic-notification-event")
}
