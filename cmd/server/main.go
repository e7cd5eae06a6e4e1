// Command server runs the entitlement validation and reconciliation engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"clubgate/internal/notification"
	"clubgate/internal/notification/kafka"
	paymenthandler "clubgate/internal/payments/handler"
	paymentservice "clubgate/internal/payments/service"
	"clubgate/internal/payments/signature"
	paymentstore "clubgate/internal/payments/store"
	"clubgate/internal/platform/config"
	"clubgate/internal/platform/httpserver"
	"clubgate/internal/platform/logger"
	"clubgate/internal/platform/metrics"
	"clubgate/internal/platform/postgres"
	"clubgate/internal/platform/redis"
	subscriptionhandler "clubgate/internal/subscription/handler"
	subscriptionservice "clubgate/internal/subscription/service"
	subscriptionstore "clubgate/internal/subscription/store"
	tickethandler "clubgate/internal/ticket/handler"
	ticketservice "clubgate/internal/ticket/service"
	ticketstore "clubgate/internal/ticket/store"
	transporthttp "clubgate/internal/transport/http"
	"clubgate/migrations"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := migrations.Apply(ctx, pool); err != nil {
			log.Error("failed to apply migrations", "error", err)
			return err
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	var publisher notification.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		log.Warn("KAFKA_BROKERS not set, notifications go to the log")
		publisher = notification.NewLogPublisher(log)
	}
	dispatcher := notification.NewAsyncDispatcher(publisher, log, m, 256)

	var (
		ticketStore       ticketstore.Store        = ticketstore.NewInMemoryStore()
		subscriptionStore subscriptionstore.Store  = subscriptionstore.NewInMemoryStore()
		markerStore       paymentstore.MarkerStore = paymentstore.NewInMemoryStore()
	)
	if pool != nil {
		ticketStore = ticketstore.NewPostgresStore(pool)
		subscriptionStore = subscriptionstore.NewPostgresStore(pool)
		markerStore = paymentstore.NewPostgresStore(pool)
	}
	if redisClient != nil {
		markerStore = paymentstore.NewCachedStore(markerStore, redisClient.Client, log)
	}

	tickets := ticketservice.New(ticketStore, dispatcher, log, m)
	subscriptions := subscriptionservice.New(subscriptionStore, log, m)
	verifier := signature.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	reconciler := paymentservice.New(verifier, markerStore, subscriptions, dispatcher, log, m)

	checkers := map[string]transporthttp.HealthChecker{}
	if pool != nil {
		checkers["postgres"] = poolChecker{pool}
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}

	router := transporthttp.NewRouter(transporthttp.Config{
		Tickets:       tickethandler.New(tickets, log),
		Subscriptions: subscriptionhandler.New(subscriptions, log),
		Payments:      paymenthandler.New(reconciler, log),
		Logger:        log,
		Checkers:      checkers,
		Timeout:       30 * time.Second,
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := dispatcher.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return err
	}
	return nil
}

type poolChecker struct {
	pool *pgxpool.Pool
}

func (c poolChecker) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}
