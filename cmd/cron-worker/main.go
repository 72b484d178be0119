package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/internal/cron"
	"github.com/flintflours/storefront-backend/internal/orders"
	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/instance"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/metrics"
	"github.com/flintflours/storefront-backend/pkg/migrate"
	"github.com/flintflours/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	orderExpiry, err := cron.NewOrderExpiryJob(orders.NewRepository(dbClient.DB()), cfg.Maintenance.UnpaidOrderTTL)
	if err != nil {
		return err
	}
	cartPrune, err := cron.NewCartPruneJob(cart.NewRepository(dbClient.DB()), cfg.Maintenance.StaleCartTTL)
	if err != nil {
		return err
	}
	lease, err := cron.NewRedisLease(redisClient, cron.LeaseKey(cfg.App.Env), 2*cfg.Maintenance.Interval)
	if err != nil {
		return err
	}
	svc, err := cron.NewService(cron.Options{
		Logger:   logg,
		Registry: cron.NewRegistry(orderExpiry, cartPrune),
		Locker:   lease,
		Metrics:  metrics.NewJobs(registry),
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Maintenance.Interval.String(),
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
