package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/iho/centralledger/internal/adapter/broker/kafka"
	httpAdapter "github.com/iho/centralledger/internal/adapter/http"
	"github.com/iho/centralledger/internal/adapter/http/handler"
	postgresRepo "github.com/iho/centralledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/centralledger/internal/adapter/repository/redis"
	"github.com/iho/centralledger/internal/health"
	"github.com/iho/centralledger/internal/infrastructure/config"
	"github.com/iho/centralledger/internal/infrastructure/eventpublisher"
	"github.com/iho/centralledger/internal/infrastructure/logger"
	"github.com/iho/centralledger/internal/infrastructure/metrics"
	"github.com/iho/centralledger/internal/infrastructure/postgres"
	"github.com/iho/centralledger/internal/infrastructure/redis"
	"github.com/iho/centralledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: cfg.ServiceName})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	startTime := time.Now().UTC()

	// Connect to PostgreSQL
	db, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()
	log.Info().Msg("connected to postgres")

	// Connect to the proxy cache
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.RedisURL,
		ClusterAddrs: cfg.RedisClusterAddrs,
		Password:     cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Produce-only client shared by the publisher and the topic health probe
	producerClient, err := kafka.NewClient(kafka.Config{
		Brokers:  cfg.KafkaBrokers,
		ClientID: cfg.KafkaClientID,
	}, log)
	if err != nil {
		return err
	}
	defer producerClient.Close()

	m := metrics.New()
	app := newApp(cfg, log, m, db, redisClient, producerClient, startTime)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	p.Go(func(ctx context.Context) error {
		return ignoreCanceled(app.relay.Start(ctx))
	})

	if cfg.HandlerEnabled(config.HandlerTimeout) {
		p.Go(func(ctx context.Context) error {
			return ignoreCanceled(app.sweeper.Start(ctx))
		})
	}

	for _, c := range app.consumers(cfg) {
		p.Go(func(ctx context.Context) error {
			return app.runConsumer(ctx, cfg, c)
		})
	}

	return p.Wait()
}

// app holds the wired components of the process.
type app struct {
	log       zerolog.Logger
	gate      *usecase.MigrationGate
	prepare   *usecase.PrepareHandler
	position  *usecase.PositionHandler
	fulfil    *usecase.FulfilHandler
	sweeper   *usecase.TimeoutSweeper
	relay     *eventpublisher.Relay
	router    http.Handler
	newClient func(kafka.Config, zerolog.Logger) (*kgo.Client, error)
}

func newApp(
	cfg *config.Config,
	log zerolog.Logger,
	m *metrics.Metrics,
	db *pgxpool.Pool,
	redisClient goredis.UniversalClient,
	producerClient *kgo.Client,
	startTime time.Time,
) *app {
	// Repositories
	txManager := postgresRepo.NewTxManager(db).WithLockTimeout(cfg.LockTimeout)
	positionRepo := postgresRepo.NewPositionRepository(db)
	changeLogRepo := postgresRepo.NewChangeLogRepository(db)
	reservationRepo := postgresRepo.NewReservationRepository(db)
	transferRepo := postgresRepo.NewTransferRepository(db)
	stateChangeRepo := postgresRepo.NewStateChangeRepository(db)
	outboxRepo := postgresRepo.NewOutboxRepository(db)
	lockRepo := postgresRepo.NewMigrationLockRepository(db)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	proxyCache := redisRepo.NewProxyCache(redisClient, cfg.ProxyKeyPrefix)
	publisher := kafka.NewPublisher(producerClient)
	gate := usecase.NewMigrationGate(lockRepo)

	relay := eventpublisher.NewRelay(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	prepare := usecase.NewPrepareHandler(usecase.PrepareHandlerConfig{
		PositionRepo:      positionRepo,
		ProxyCache:        proxyCache,
		Publisher:         publisher,
		IDGen:             idGen,
		Metrics:           m,
		Logger:            log,
		PositionTopic:     cfg.TopicTransferPosition,
		NotificationTopic: cfg.TopicNotificationEvent,
	})

	position := usecase.NewPositionHandler(usecase.PositionHandlerConfig{
		TxManager:         txManager,
		PositionRepo:      positionRepo,
		ChangeLogRepo:     changeLogRepo,
		ReservationRepo:   reservationRepo,
		TransferRepo:      transferRepo,
		StateChangeRepo:   stateChangeRepo,
		OutboxRepo:        outboxRepo,
		Gate:              gate,
		Retrier:           retrier,
		IDGen:             idGen,
		Notifier:          relay,
		Metrics:           m,
		Logger:            log,
		NotificationTopic: cfg.TopicNotificationEvent,
	})

	fulfil := usecase.NewFulfilHandler(usecase.FulfilHandlerConfig{
		TransferRepo:      transferRepo,
		Publisher:         publisher,
		IDGen:             idGen,
		Metrics:           m,
		Logger:            log,
		PositionTopic:     cfg.TopicTransferPosition,
		NotificationTopic: cfg.TopicNotificationEvent,
	})

	sweeper := usecase.NewTimeoutSweeper(usecase.TimeoutSweeperConfig{
		TransferRepo:  transferRepo,
		Publisher:     publisher,
		IDGen:         idGen,
		Metrics:       m,
		Logger:        log,
		PositionTopic: cfg.TopicTransferPosition,
		Interval:      cfg.SweepInterval,
		BatchSize:     cfg.SweepBatchSize,
	})

	aggregator := health.NewAggregator(health.Config{
		Broker:     kafka.NewAdmin(producerClient, cfg.Topics()...),
		Datastore:  lockRepo,
		ProxyCache: proxyCache,
		Version:    cfg.Version,
		StartTime:  startTime,
		Timeout:    cfg.HealthTimeout,
		Metrics:    m,
		Logger:     log,
	})

	positionUC := usecase.NewPositionUseCase(txManager, positionRepo, changeLogRepo, idGen)
	reconciliationUC := usecase.NewReconciliationUseCase(positionRepo, changeLogRepo, reservationRepo)
	transferUC := usecase.NewTransferUseCase(transferRepo, stateChangeRepo)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler:   handler.NewHealthHandler(aggregator),
		TransferHandler: handler.NewTransferHandler(prepare, fulfil, transferUC),
		PositionHandler: handler.NewPositionHandler(positionUC, reconciliationUC),
		Metrics:         m,
		Logger:          log,
	})

	return &app{
		log:       log,
		gate:      gate,
		prepare:   prepare,
		position:  position,
		fulfil:    fulfil,
		sweeper:   sweeper,
		relay:     relay,
		router:    router,
		newClient: kafka.NewClient,
	}
}

// consumerJob describes one consumer group and the handler it feeds.
type consumerJob struct {
	name  string
	topic string
	start func(ctx context.Context, consumer usecase.Consumer) error
}

func (a *app) consumers(cfg *config.Config) []consumerJob {
	consume := func(h usecase.MessageHandler) func(context.Context, usecase.Consumer) error {
		return func(ctx context.Context, c usecase.Consumer) error {
			return c.Consume(ctx, h)
		}
	}

	all := []consumerJob{
		{name: config.HandlerPrepare, topic: cfg.TopicTransferPrepare, start: consume(a.prepare.Handle)},
		{name: config.HandlerPosition, topic: cfg.TopicTransferPosition, start: a.position.Start},
		{name: config.HandlerFulfil, topic: cfg.TopicTransferFulfil, start: consume(a.fulfil.Handle)},
	}

	var enabled []consumerJob
	for _, c := range all {
		if cfg.HandlerEnabled(c.name) {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

// runConsumer waits for the migration lock to clear, then joins the consumer
// group and consumes until ctx is done. Health keeps reporting the datastore
// as DOWN while the lock is engaged.
func (a *app) runConsumer(ctx context.Context, cfg *config.Config, job consumerJob) error {
	log := a.log.With().Str("handler", job.name).Str("topic", job.topic).Logger()

	if err := a.waitForMigrations(ctx, cfg, log); err != nil {
		return ignoreCanceled(err)
	}

	client, err := a.newClient(kafka.Config{
		Brokers:      cfg.KafkaBrokers,
		ClientID:     cfg.KafkaClientID + "-" + job.name,
		Group:        cfg.ConsumerGroup(job.name),
		Topics:       []string{job.topic},
		FetchMaxWait: cfg.KafkaFetchMaxWait,
	}, log)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info().Str("group", cfg.ConsumerGroup(job.name)).Msg("consumer started")
	return ignoreCanceled(job.start(ctx, kafka.NewConsumer(client, log)))
}

// waitForMigrations polls the lock until it clears or ctx is done. It never
// gives up on its own: a long migration must not turn into a restart loop.
func (a *app) waitForMigrations(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	if cfg.MigrationPollInterval > 0 {
		b.MaxInterval = cfg.MigrationPollInterval
		if b.InitialInterval > b.MaxInterval {
			b.InitialInterval = b.MaxInterval
		}
	}

	return a.gate.Wait(ctx, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("waiting for migration lock to clear")
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
