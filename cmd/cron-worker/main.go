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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dentaldesk/dentaldesk-backend/internal/cron"
	"github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/internal/subscriptions"
	"github.com/dentaldesk/dentaldesk-backend/internal/tenants"
	"github.com/dentaldesk/dentaldesk-backend/pkg/bootstrap"
	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db"
	"github.com/dentaldesk/dentaldesk-backend/pkg/instance"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
	"github.com/dentaldesk/dentaldesk-backend/pkg/migrate"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
	"github.com/dentaldesk/dentaldesk-backend/pkg/redis"
)

const (
	serviceName     = "cron-worker"
	shutdownTimeout = 5 * time.Second
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
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	jobs, err := buildJobs(cfg, logg, dbClient, metrics.NewBillingMetrics(reg))
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+cfg.App.Env), instance.GetID(), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithField(gctx, "jobs", jobs.Names()), "starting cron worker")
		if err := service.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return bootstrap.Serve(gctx, logg, opsServer(cfg.App.Port, reg, dbClient), shutdownTimeout)
	})
	return g.Wait()
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, billing *metrics.BillingMetrics) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())
	resolver, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo: subscriptions.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewEntitlementExpiryJob(cron.EntitlementExpiryJobParams{
		Logger:   logg,
		DB:       dbClient,
		Clinics:  tenants.NewRepository(dbClient.DB()),
		Resolver: resolver,
		Outbox:   outbox.NewService(outboxRepo, logg),
	})
	if err != nil {
		return nil, fmt.Errorf("entitlement expiry job: %w", err)
	}
	stale, err := cron.NewStalePendingJob(cron.StalePendingJobParams{
		Logger:   logg,
		Payments: payments.NewRepository(dbClient.DB()),
		Metrics:  billing,
		After:    cfg.Cron.StalePendingPayment,
	})
	if err != nil {
		return nil, fmt.Errorf("stale pending job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Repository:  outboxRepo,
		Retention:   cfg.Outbox.Retention,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	return cron.NewRegistry(expiry, stale, retention), nil
}

// opsServer exposes liveness and metrics for the worker. It serves no
// business routes.
func opsServer(port string, gatherer prometheus.Gatherer, dbClient db.Pinger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := dbClient.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{Addr: ":" + port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}
