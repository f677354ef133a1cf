package main

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/certshop/internal/config"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/repository"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// loadCatalog returns the catalog from SQLite, or the built-in list when configured so.
func loadCatalog(ctx context.Context, cfg *config.Config) (*domain.Catalog, error) {
	if !cfg.UsesRepository() {
		return domain.NewCatalog(domain.DefaultProducts())
	}

	repo, err := repository.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return nil, err
	}
	catalog, err := repository.LoadCatalog(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.WithField("products", catalog.Len()).Info("catalog loaded from database")
	return catalog, nil
}

// sessionProvider returns the store provider and a cleanup func.
func sessionProvider(ctx context.Context, cfg *config.Config) (session.Provider, func(), error) {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryProvider(cfg.Session.TTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := session.PingRedis(ctx, client, cfg.Redis.RetryAttempts, cfg.Redis.RetryDelay, cfg.Redis.RetryMaxDelay); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.WithField("addr", cfg.Redis.Addr).Info("session store: redis")

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis client")
		}
	}
	return session.NewRedisProvider(client, cfg.Session.TTL), cleanup, nil
}

func newSender(cfg *config.Config) delivery.Sender {
	sim := delivery.NewSimulator(
		cfg.Delivery.MinLatency,
		cfg.Delivery.MaxLatency,
		cfg.Delivery.SuccessRate,
		delivery.RandomDice{},
	)
	return delivery.NewBreaker(sim, delivery.BreakerSettings{
		Name:             "email-relay",
		FailureThreshold: cfg.Delivery.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Delivery.Breaker.OpenTimeout,
	})
}
