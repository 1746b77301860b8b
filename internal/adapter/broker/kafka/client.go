package kafka

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Config configures a franz-go client.
type Config struct {
	Brokers  []string
	ClientID string
	// Group and Topics enable group consumption. Leave Group empty for a
	// produce-only client.
	Group        string
	Topics       []string
	FetchMaxWait time.Duration
}

// NewClient creates a franz-go client. Consumer clients never auto-commit;
// offsets are committed by the Consumer after a record is handled.
func NewClient(cfg Config, logger zerolog.Logger) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no seed brokers configured")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.WithLogger(newLogger(logger)),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.Group != "" {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.Group),
			kgo.ConsumeTopics(cfg.Topics...),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			kgo.FetchIsolationLevel(kgo.ReadCommitted()),
			kgo.DisableAutoCommit(),
			kgo.BlockRebalanceOnPoll(),
		)
		if cfg.FetchMaxWait > 0 {
			opts = append(opts, kgo.FetchMaxWait(cfg.FetchMaxWait))
		}
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	return client, nil
}

// kgoLogger routes franz-go client logs through zerolog.
type kgoLogger struct {
	logger zerolog.Logger
}

func newLogger(logger zerolog.Logger) *kgoLogger {
	return &kgoLogger{logger: logger.With().Str("component", "kafka").Logger()}
}

func (l *kgoLogger) Level() kgo.LogLevel {
	switch l.logger.GetLevel() {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return kgo.LogLevelDebug
	case zerolog.InfoLevel:
		return kgo.LogLevelInfo
	case zerolog.WarnLevel:
		return kgo.LogLevelWarn
	case zerolog.Disabled:
		return kgo.LogLevelNone
	default:
		return kgo.LogLevelError
	}
}

func (l *kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	var ev *zerolog.Event
	switch level {
	case kgo.LogLevelError:
		ev = l.logger.Error()
	case kgo.LogLevelWarn:
		ev = l.logger.Warn()
	case kgo.LogLevelInfo:
		ev = l.logger.Info()
	default:
		ev = l.logger.Debug()
	}

	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
