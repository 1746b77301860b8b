package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/centralledger/internal/adapter/broker/kafka"
	postgresRepo "github.com/iho/centralledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/centralledger/internal/adapter/repository/redis"
	"github.com/iho/centralledger/internal/infrastructure/config"
	"github.com/iho/centralledger/internal/infrastructure/logger"
	"github.com/iho/centralledger/internal/infrastructure/postgres"
	"github.com/iho/centralledger/internal/infrastructure/redis"
	"github.com/iho/centralledger/internal/usecase"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migrations. The migration lock is engaged while they run",
	}

	run := func(fn func(ctx context.Context, m *postgres.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Service: "centralledger-cli"})

			ctx := cmd.Context()
			db, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, postgresRepo.NewMigrationLockRepository(db), log)
			if err != nil {
				return err
			}
			defer m.Close()

			return fn(ctx, m)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: run(func(ctx context.Context, m *postgres.Migrator) error {
			return m.Up(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: run(func(ctx context.Context, m *postgres.Migrator) error {
			return m.Down(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, m *postgres.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			})(cmd, args)
		},
	})

	return cmd
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Broker topic operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create any missing ledger topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: "warn", Format: "console", Service: "centralledger-cli"})

			client, err := kafka.NewClient(kafka.Config{Brokers: cfg.KafkaBrokers, ClientID: cfg.KafkaClientID + "-cli"}, log)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			created, err := kafka.NewAdmin(client, cfg.Topics()...).EnsureTopics(ctx, cfg.TopicPartitions, cfg.TopicReplicationFactor)
			for _, topic := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", topic)
			}
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "all topics exist")
			}
			return nil
		},
	})

	return cmd
}

// proxyStore is the part of the proxy cache the CLI edits.
type proxyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func newProxyCache(ctx context.Context) (proxyStore, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	client, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.RedisURL,
		ClusterAddrs: cfg.RedisClusterAddrs,
		Password:     cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, err
	}

	return redisRepo.NewProxyCache(client, cfg.ProxyKeyPrefix), client.Close, nil
}

func proxyCmd(open func(ctx context.Context) (proxyStore, func() error, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Inter-scheme proxy routes",
	}

	withStore := func(fn func(ctx context.Context, cmd *cobra.Command, store proxyStore, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(ctx, cmd, store, args)
		}
	}

	var ttl time.Duration
	setCmd := &cobra.Command{
		Use:   "set <participant> <proxy>",
		Short: "Route a participant through a proxy",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store proxyStore, args []string) error {
			return store.Set(ctx, usecase.ProxyKey(args[0]), args[1], ttl)
		}),
	}
	setCmd.Flags().DurationVar(&ttl, "ttl", usecase.DefaultProxyTTL, "How long the route stays cached")

	cmd.AddCommand(setCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "get <participant>",
		Short: "Show the proxy a participant is routed through",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store proxyStore, args []string) error {
			proxy, ok, err := store.Get(ctx, usecase.ProxyKey(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no proxy route for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), proxy)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <participant>",
		Short: "Remove a proxy route",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store proxyStore, args []string) error {
			return store.Delete(ctx, usecase.ProxyKey(args[0]))
		}),
	})

	return cmd
}
