package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

type fakeAdmin struct {
	details kadm.TopicDetails
	listErr error
	created kadm.CreateTopicResponses
}

func (f *fakeAdmin) ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
	return f.details, f.listErr
}

func (f *fakeAdmin) CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error) {
	return f.created, nil
}

func TestAdminHealthCheck(t *testing.T) {
	topics := []string{"topic-transfer-position", "topic-notification-event"}

	tests := []struct {
		name    string
		admin   *fakeAdmin
		topics  []string
		healthy bool
	}{
		{
			name:    "no topics while cluster unreachable",
			admin:   &fakeAdmin{listErr: errors.New("dial tcp: connection refused")},
			topics:  []string{},
			healthy: true,
		},
		{
			name: "all topics present",
			admin: &fakeAdmin{details: kadm.TopicDetails{
				"topic-transfer-position":  {Topic: "topic-transfer-position"},
				"topic-notification-event": {Topic: "topic-notification-event"},
			}},
			healthy: true,
		},
		{
			name: "topic missing",
			admin: &fakeAdmin{details: kadm.TopicDetails{
				"topic-transfer-position": {Topic: "topic-transfer-position"},
			}},
		},
		{
			name: "topic error",
			admin: &fakeAdmin{details: kadm.TopicDetails{
				"topic-transfer-position":  {Topic: "topic-transfer-position"},
				"topic-notification-event": {Topic: "topic-notification-event", Err: kerr.UnknownTopicOrPartition},
			}},
		},
		{
			name:  "cluster unreachable",
			admin: &fakeAdmin{listErr: errors.New("dial tcp: connection refused")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			watched := topics
			if tt.topics != nil {
				watched = tt.topics
			}
			a := &Admin{admin: tt.admin, topics: watched}
			ok, err := a.HealthCheck(context.Background())
			assert.Equal(t, tt.healthy, ok)
			if tt.healthy {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAdminEnsureTopics(t *testing.T) {
	a := &Admin{
		admin: &fakeAdmin{created: kadm.CreateTopicResponses{
			"topic-transfer-position":  {Topic: "topic-transfer-position"},
			"topic-notification-event": {Topic: "topic-notification-event", Err: kerr.TopicAlreadyExists},
		}},
		topics: []string{"topic-transfer-position", "topic-notification-event"},
	}

	created, err := a.EnsureTopics(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"topic-transfer-position"}, created)
}

func TestAdminEnsureTopicsFailure(t *testing.T) {
	a := &Admin{
		admin: &fakeAdmin{created: kadm.CreateTopicResponses{
			"topic-transfer-position": {Topic: "topic-transfer-position", Err: kerr.PolicyViolation},
		}},
		topics: []string{"topic-transfer-position"},
	}

	_, err := a.EnsureTopics(context.Background(), 3, 1)
	assert.ErrorIs(t, err, kerr.PolicyViolation)
}
