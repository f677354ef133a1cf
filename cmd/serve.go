package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/config"
	"github.com/fjod/go_cart/certshop/internal/events"
	h "github.com/fjod/go_cart/certshop/internal/http"
	"github.com/fjod/go_cart/certshop/internal/logger"
	"github.com/fjod/go_cart/certshop/internal/metrics"
	"github.com/fjod/go_cart/certshop/internal/publisher"
	"github.com/fjod/go_cart/certshop/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout); err != nil {
				return err
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	provider, closeProvider, err := sessionProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	bus := events.NewBus()
	if len(cfg.Kafka.Brokers) > 0 {
		pub := publisher.NewDeliveryPublisher(cfg.Kafka.QueueSize, cfg.Kafka.Brokers...)
		unsubscribe := bus.Subscribe(pub.Handle)
		defer unsubscribe()
		go pub.Run(ctx)
		defer func() {
			if err := pub.Close(); err != nil {
				log.WithError(err).Warn("failed to close kafka writer")
			}
		}()
		log.WithField("brokers", cfg.Kafka.Brokers).Info("publishing delivery events to " + publisher.Topic)
	}

	registry := service.NewRegistry(
		provider,
		catalog,
		certificate.NewGenerator(cfg.Delivery.CertWidth, cfg.Delivery.CertHeight),
		newSender(cfg),
		bus,
		cfg.Session.IdleTTL,
	)
	defer registry.Close()

	router := h.NewRouter(registry, catalog, cfg.HTTP.RequestTimeout, promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      otelhttp.NewHandler(router, "certshop"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.HTTP.Addr, "env": cfg.Env}).Info("certshop starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}
