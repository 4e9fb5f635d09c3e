package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dentaldesk/dentaldesk-backend/api/controllers"
	"github.com/dentaldesk/dentaldesk-backend/api/routes"
	"github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/internal/profiles"
	"github.com/dentaldesk/dentaldesk-backend/internal/proofs"
	"github.com/dentaldesk/dentaldesk-backend/internal/subscriptions"
	"github.com/dentaldesk/dentaldesk-backend/internal/tenants"
	"github.com/dentaldesk/dentaldesk-backend/pkg/bootstrap"
	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db"
	"github.com/dentaldesk/dentaldesk-backend/pkg/env"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
	"github.com/dentaldesk/dentaldesk-backend/pkg/migrate"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
	"github.com/dentaldesk/dentaldesk-backend/pkg/redis"
	"github.com/dentaldesk/dentaldesk-backend/pkg/storage/gcs"
)

const (
	serviceName     = "api"
	shutdownTimeout = 20 * time.Second
)

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer bootstrap.CloseWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer bootstrap.CloseWithLog(ctx, logg, "redis", redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.Storage, cfg.GCP, logg)
	if err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}
	defer bootstrap.CloseWithLog(ctx, logg, "storage", gcsClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := dbClient.RegisterMetrics(registry, "dentaldesk"); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "db pool metrics not registered")
	}
	billingMetrics := metrics.NewBillingMetrics(registry)

	uploader, err := proofs.NewUploader(gcsClient, proofs.Config{
		Bucket:     cfg.Storage.ProofBucket,
		MaxBytes:   cfg.Storage.MaxUploadBytes(),
		ReadURLTTL: cfg.Storage.ProofReadURLExpiry,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	profileRepo := profiles.NewRepository(dbClient.DB())
	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		return err
	}

	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())
	resolver, err := subscriptions.NewService(subscriptions.ServiceParams{Repo: subscriptionRepo})
	if err != nil {
		return err
	}

	tenantRepo := tenants.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:              paymentRepo,
		Subscriptions:     subscriptionRepo,
		Profiles:          profileRepo,
		Admins:            profileService,
		Clinics:           tenantRepo,
		Proofs:            uploader,
		Outbox:            emitter,
		TransactionRunner: dbClient,
		IQDPerUSD:         cfg.Billing.IQDPerUSD,
		Metrics:           billingMetrics,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	tenantService, err := tenants.NewService(tenants.ServiceParams{
		Repo:              tenantRepo,
		Entitlements:      tenants.NewEntitlementRepository(dbClient.DB()),
		Profiles:          profileRepo,
		Payments:          paymentRepo,
		Subscriptions:     subscriptionRepo,
		Outbox:            emitter,
		TransactionRunner: dbClient,
		Metrics:           billingMetrics,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + env.Get(cfg.App.Port, "PORT"),
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Dependencies{
			Config: cfg,
			Logger: logg,
			Readiness: map[string]controllers.Pinger{
				"db":      dbClient,
				"redis":   redisClient,
				"storage": gcsClient,
			},
			Redis:         redisClient,
			HTTPMetrics:   metrics.NewHTTPMetrics(registry),
			Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Payments:      paymentService,
			Tenants:       tenantService,
			Profiles:      profileService,
			Subscriptions: resolver,
			MaxProofBytes: cfg.Storage.MaxUploadBytes(),
		}),
	}
	return bootstrap.Serve(ctx, logg, server, shutdownTimeout)
}
