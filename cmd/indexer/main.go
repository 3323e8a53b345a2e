package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/atmx/aco-indexer/internal/api"
	"github.com/atmx/aco-indexer/internal/chain/ethcall"
	"github.com/atmx/aco-indexer/internal/config"
	"github.com/atmx/aco-indexer/internal/feed"
	"github.com/atmx/aco-indexer/internal/indexer"
	"github.com/atmx/aco-indexer/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(cfg); err != nil {
		slog.Error("aco-indexer stopped", "err", err)
		os.Exit(1)
	}
	fmt.Println("aco-indexer stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	cleanup = append(cleanup, func() { rdb.Close() })

	// --- Initialize store ---
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		st = store.NewCachedStore(pg, rdb, cfg.CacheTTL)
		slog.Info("connected to PostgreSQL", "cache_ttl", cfg.CacheTTL)
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Chain reads ---
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("rpc dial: %w", err)
	}
	cleanup = append(cleanup, client.Close)
	reader := ethcall.New(client)

	// --- Command publisher ---
	redisPub, err := feed.NewRedisPublisher(rdb)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	publisher := feed.NewPublisher(redisPub, cfg.CommandsTopic)
	cleanup = append(cleanup, func() { publisher.Close() })

	hub := feed.NewWSHub()
	ix := indexer.New(st, reader, publisher, cfg.Network, hub)

	// --- Event consumer ---
	sub, err := feed.NewRedisSubscriber(rdb, cfg.ConsumerGroup)
	if err != nil {
		return fmt.Errorf("subscriber: %w", err)
	}
	consumer, err := feed.NewConsumer(sub, feed.NewDispatcher(ix), cfg.EventsTopic)
	if err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewService(st, hub).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		slog.Info("consuming events",
			"network", cfg.Network.Name,
			"topic", cfg.EventsTopic,
			"group", cfg.ConsumerGroup,
		)
		return consumer.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("aco-indexer listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down aco-indexer...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
		return consumer.Close()
	})
	return g.Wait()
}
