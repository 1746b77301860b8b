package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/iho/centralledger/internal/adapter/broker/kafka"
	"github.com/iho/centralledger/internal/infrastructure/config"
	"github.com/iho/centralledger/internal/usecase"
)

func TestIgnoreCanceled(t *testing.T) {
	if err := ignoreCanceled(context.Canceled); err != nil {
		t.Fatalf("expected nil for context.Canceled, got %v", err)
	}
	if err := ignoreCanceled(fmt.Errorf("consume: %w", context.Canceled)); err != nil {
		t.Fatalf("expected nil for wrapped context.Canceled, got %v", err)
	}

	boom := errors.New("boom")
	if err := ignoreCanceled(boom); !errors.Is(err, boom) {
		t.Fatalf("expected other errors to pass through, got %v", err)
	}
}

func TestConsumersFollowEnabledHandlers(t *testing.T) {
	a := &app{
		prepare:  usecase.NewPrepareHandler(usecase.PrepareHandlerConfig{Logger: zerolog.Nop()}),
		position: usecase.NewPositionHandler(usecase.PositionHandlerConfig{Logger: zerolog.Nop()}),
		fulfil:   usecase.NewFulfilHandler(usecase.FulfilHandlerConfig{Logger: zerolog.Nop()}),
	}

	cfg := &config.Config{
		Handlers:              []string{config.HandlerPosition, config.HandlerTimeout},
		TopicTransferPrepare:  "prepare",
		TopicTransferPosition: "position",
		TopicTransferFulfil:   "fulfil",
	}

	got := a.consumers(cfg)
	if len(got) != 1 || got[0].name != config.HandlerPosition || got[0].topic != "position" {
		t.Fatalf("expected only the position consumer, got %+v", got)
	}
}

type lockStub struct {
	calls  int
	unlock int
}

func (l *lockStub) IsLocked(ctx context.Context) (bool, error) {
	l.calls++
	return l.calls < l.unlock, nil
}

func TestWaitForMigrations(t *testing.T) {
	lock := &lockStub{unlock: 2}
	a := &app{gate: usecase.NewMigrationGate(lock)}

	err := a.waitForMigrations(context.Background(), &config.Config{MigrationPollInterval: 10 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatalf("expected the gate to open, got %v", err)
	}
	if lock.calls != 2 {
		t.Fatalf("expected two lock reads, got %d", lock.calls)
	}
}

func TestWaitForMigrationsHonoursContext(t *testing.T) {
	a := &app{gate: usecase.NewMigrationGate(&lockStub{unlock: 1 << 30})}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.waitForMigrations(ctx, &config.Config{MigrationPollInterval: time.Second}, zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the wait to stop on a cancelled context, got %v", err)
	}
}

func TestRunConsumerKeepsWaitingWhileMigrationLocked(t *testing.T) {
	lock := &lockStub{unlock: 1 << 30}
	dialed := false
	a := &app{
		log:  zerolog.Nop(),
		gate: usecase.NewMigrationGate(lock),
		newClient: func(kafka.Config, zerolog.Logger) (*kgo.Client, error) {
			dialed = true
			return nil, errors.New("consumer must not start while locked")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(200*time.Millisecond, cancel)
	defer timer.Stop()

	job := consumerJob{name: config.HandlerPosition, topic: "position"}
	err := a.runConsumer(ctx, &config.Config{MigrationPollInterval: 10 * time.Millisecond}, job)
	if err != nil {
		t.Fatalf("expected a clean stop on shutdown, got %v", err)
	}
	if dialed {
		t.Fatal("consumer joined its group while the lock was engaged")
	}
	if lock.calls < 2 {
		t.Fatalf("expected the lock to be polled repeatedly, got %d reads", lock.calls)
	}
}
