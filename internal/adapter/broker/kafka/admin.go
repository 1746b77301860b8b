package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type topicAdmin interface {
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
}

// Admin probes and provisions the topics the ledger depends on.
type Admin struct {
	admin  topicAdmin
	topics []string
}

// NewAdmin creates a new Admin for topics.
func NewAdmin(client *kgo.Client, topics ...string) *Admin {
	return &Admin{admin: kadm.NewClient(client), topics: topics}
}

// HealthCheck reports whether every topic is reachable on the cluster. With
// no topics to watch there is nothing to be unhealthy about.
func (a *Admin) HealthCheck(ctx context.Context) (bool, error) {
	if len(a.topics) == 0 {
		return true, nil
	}

	details, err := a.admin.ListTopics(ctx, a.topics...)
	if err != nil {
		return false, fmt.Errorf("kafka: list topics: %w", err)
	}

	for _, topic := range a.topics {
		d, ok := details[topic]
		if !ok {
			return false, fmt.Errorf("kafka: topic %s not found", topic)
		}
		if d.Err != nil {
			return false, fmt.Errorf("kafka: topic %s: %w", topic, d.Err)
		}
	}

	return true, nil
}

// EnsureTopics creates any missing topic. Existing topics are left untouched.
func (a *Admin) EnsureTopics(ctx context.Context, partitions int32, replicationFactor int16) ([]string, error) {
	resp, err := a.admin.CreateTopics(ctx, partitions, replicationFactor, nil, a.topics...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create topics: %w", err)
	}

	var (
		created []string
		errs    []error
	)
	for _, topic := range a.topics {
		r, ok := resp[topic]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("kafka: no response for topic %s", topic))
		case r.Err == nil:
			created = append(created, topic)
		case errors.Is(r.Err, kerr.TopicAlreadyExists):
		default:
			errs = append(errs, fmt.Errorf("kafka: create %s: %w", topic, r.Err))
		}
	}

	return created, errors.Join(errs...)
}
