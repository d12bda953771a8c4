package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agyemangopoku/farmlink-backend/api/routes"
	"github.com/agyemangopoku/farmlink-backend/internal/audit"
	"github.com/agyemangopoku/farmlink-backend/internal/billing"
	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	"github.com/agyemangopoku/farmlink-backend/internal/idempotency"
	"github.com/agyemangopoku/farmlink-backend/internal/integrations"
	"github.com/agyemangopoku/farmlink-backend/internal/locks"
	"github.com/agyemangopoku/farmlink-backend/internal/notify"
	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/db"
	"github.com/agyemangopoku/farmlink-backend/pkg/env"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
	"github.com/agyemangopoku/farmlink-backend/pkg/metrics"
	"github.com/agyemangopoku/farmlink-backend/pkg/migrate"
	"github.com/agyemangopoku/farmlink-backend/pkg/pubsub"
	"github.com/agyemangopoku/farmlink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	fulfillmentMetrics := metrics.NewFulfillmentMetrics(prometheus.DefaultRegisterer)

	lockManager, err := locks.NewManager(redisClient, logg, fulfillmentMetrics, cfg.Locks)
	if err != nil {
		logg.Error(context.Background(), "failed to create lock manager", err)
		os.Exit(1)
	}

	tracker, err := idempotency.NewTracker(dbClient.DB(), cfg.Idempotency.Retention)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency tracker", err)
		os.Exit(1)
	}

	engine, err := recommendation.NewEngine(cfg.Procurement)
	if err != nil {
		logg.Error(context.Background(), "failed to create recommendation engine", err)
		os.Exit(1)
	}

	calculator, err := billing.NewCalculator(cfg.Procurement)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing calculator", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	sequences, err := fulfillment.NewSequenceGenerator(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence generator", err)
		os.Exit(1)
	}

	var dispatcher notify.Dispatcher = notify.NoopDispatcher{}
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		dispatcher, err = notify.NewPubSubDispatcher(pubsubClient.EventsPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create event dispatcher", err)
			os.Exit(1)
		}
	}

	directory, err := integrations.NewDirectoryClient(cfg.Integrations)
	if err != nil {
		logg.Error(context.Background(), "failed to create farm directory client", err)
		os.Exit(1)
	}

	rail, err := integrations.NewRailClient(cfg.Integrations)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment rail client", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:        fulfillment.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Locker:      fulfillment.NewLocker(lockManager),
		Tracker:     tracker,
		Engine:      engine,
		Calculator:  calculator,
		Audit:       auditService,
		Dispatcher:  dispatcher,
		Directory:   directory,
		Permissions: integrations.NewRolePermissions(),
		Rail:        rail,
		Sequences:   sequences,
		Metrics:     fulfillmentMetrics,
		Logger:      logg,
		Procurement: cfg.Procurement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, fulfillmentService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
