package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/api/controllers"
	"github.com/angelmondragon/storefront-checkout/api/routes"
	"github.com/angelmondragon/storefront-checkout/internal/analytics"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/orders"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/internal/wishlist"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/instance"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/migrate"
	"github.com/angelmondragon/storefront-checkout/pkg/outbox"
	"github.com/angelmondragon/storefront-checkout/pkg/pubsub"
	"github.com/angelmondragon/storefront-checkout/pkg/razorpay"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
	"github.com/angelmondragon/storefront-checkout/pkg/shopify"
	"github.com/angelmondragon/storefront-checkout/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Instance:    instance.GetID(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var psClient *pubsub.Client
	if strings.EqualFold(cfg.Analytics.Sink, config.AnalyticsSinkPubSub) {
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		readiness["pubsub"] = psClient
	}

	sink, err := analyticsSink(cfg, psClient, logg)
	requireResource(ctx, logg, "analytics sink", err)
	emitter, err := analytics.NewEmitter(sink, analytics.EmitterOptions{
		BufferSize:  cfg.Analytics.BufferSize,
		SendTimeout: cfg.Analytics.SendTimeout,
		Logger:      logg,
		Metrics:     checkoutMetrics,
	})
	requireResource(ctx, logg, "analytics emitter", err)

	backend, err := commerceBackend(ctx, cfg, logg)
	requireResource(ctx, logg, "commerce backend", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(dbClient.DB()),
		DB:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Backend:    backend,
		Logger:     logg,
	})
	requireResource(ctx, logg, "orders service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(redisClient, cfg.Cart.SessionTTL, cfg.Cart.DefaultCurrency),
		Emitter:    emitter,
		Checkout:   ordersService,
		Logger:     logg,
	})
	requireResource(ctx, logg, "cart service", err)

	gateway, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
	requireResource(ctx, logg, "razorpay client", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Gateway:         gateway,
		Descriptors:     payments.NewRedisDescriptorStore(redisClient),
		Recorder:        ordersService,
		KeySecret:       cfg.Razorpay.KeySecret,
		OrderTTL:        cfg.Checkout.OrderTTL,
		VerifiedTTL:     cfg.Checkout.VerifiedTTL,
		DefaultCurrency: cfg.Checkout.DefaultCurrency,
		Logger:          logg,
		Metrics:         checkoutMetrics,
	})
	requireResource(ctx, logg, "payments service", err)

	wishlistService, err := wishlist.NewService(wishlist.NewRepository(dbClient.DB()), cfg.Cart.DefaultCurrency)
	requireResource(ctx, logg, "wishlist service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": backend.Name(),
	})

	handler := routes.NewRouter(cfg, logg, readiness, redisClient, registry,
		cartService, paymentsService, ordersService, wishlistService)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case err, ok := <-serverErr:
		if ok {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	closeErr = multierr.Append(closeErr, emitter.Close(shutdownCtx))
	if psClient != nil {
		closeErr = multierr.Append(closeErr, psClient.Close())
	}
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(serverCtx, "error during shutdown", closeErr)
		exitCode = 1
	}
	logg.Info(serverCtx, "api server stopped")
	os.Exit(exitCode)
}

func analyticsSink(cfg *config.Config, psClient *pubsub.Client, logg *logger.Logger) (analytics.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Analytics.Sink)) {
	case "", config.AnalyticsSinkLog:
		return analytics.NewLogSink(logg), nil
	case config.AnalyticsSinkPubSub:
		return analytics.NewPubSubSink(psClient.AnalyticsPublisher())
	default:
		return nil, errors.New("unsupported analytics sink " + cfg.Analytics.Sink)
	}
}

func commerceBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (orders.Backend, error) {
	switch cfg.Commerce.Normalized() {
	case config.CommerceBackendShopify:
		client, err := shopify.NewClient(cfg.Shopify, &http.Client{Timeout: cfg.Shopify.Timeout}, logg)
		if err != nil {
			return nil, err
		}
		return orders.NewBackend(cfg.Commerce, client, nil)
	case config.CommerceBackendSquare:
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		return orders.NewBackend(cfg.Commerce, nil, client)
	default:
		return orders.NewBackend(cfg.Commerce, nil, nil)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to initialize "+name, err)
	os.Exit(1)
}
