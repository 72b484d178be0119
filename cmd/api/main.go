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
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/flintflours/storefront-backend/api/routes"
	"github.com/flintflours/storefront-backend/internal/address"
	"github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/internal/orders"
	products "github.com/flintflours/storefront-backend/internal/products"
	"github.com/flintflours/storefront-backend/internal/reviews"
	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/instance"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/migrate"
	"github.com/flintflours/storefront-backend/pkg/payments"
	"github.com/flintflours/storefront-backend/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	services, err := buildServices(ctx, cfg, logg, dbClient)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Registry:    registry,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
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
		logg.Info(logCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()

	productSvc, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, productSvc)
	if err != nil {
		return routes.Services{}, err
	}
	addressSvc, err := address.NewService(address.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	// Without gateway credentials orders can be placed but not paid.
	var gateway orders.Gateway
	if cfg.Payment.Enabled() {
		client, err := payments.NewClient(cfg.Payment)
		if err != nil {
			return routes.Services{}, err
		}
		gateway = client
	} else {
		logg.Warn(ctx, "payment gateway not configured; payment endpoints will fail")
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, gateway, cartRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}
	reviewSvc, err := reviews.NewService(reviews.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:  productSvc,
		Cart:      cartSvc,
		Addresses: addressSvc,
		Orders:    orderSvc,
		Reviews:   reviewSvc,
	}, nil
}
