// Package app wires configuration, storage, messaging, and HTTP handlers
// into a runnable storefront server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	cartevent "github.com/dkarlss/storefront/internal/cart/event"
	carthandler "github.com/dkarlss/storefront/internal/cart/handler/http"
	cartredis "github.com/dkarlss/storefront/internal/cart/repository/redis"
	cartservice "github.com/dkarlss/storefront/internal/cart/service"
	catalogclient "github.com/dkarlss/storefront/internal/catalog/client"
	cataloghandler "github.com/dkarlss/storefront/internal/catalog/handler/http"
	checkoutdomain "github.com/dkarlss/storefront/internal/checkout/domain"
	checkouthandler "github.com/dkarlss/storefront/internal/checkout/handler/http"
	checkoutredis "github.com/dkarlss/storefront/internal/checkout/repository/redis"
	checkoutservice "github.com/dkarlss/storefront/internal/checkout/service"
	"github.com/dkarlss/storefront/internal/config"
	identityauth "github.com/dkarlss/storefront/internal/identity/auth"
	identityevent "github.com/dkarlss/storefront/internal/identity/event"
	identityhandler "github.com/dkarlss/storefront/internal/identity/handler/http"
	identitypostgres "github.com/dkarlss/storefront/internal/identity/repository/postgres"
	identityservice "github.com/dkarlss/storefront/internal/identity/service"
	orderevent "github.com/dkarlss/storefront/internal/order/event"
	orderhandler "github.com/dkarlss/storefront/internal/order/handler/http"
	orderpostgres "github.com/dkarlss/storefront/internal/order/repository/postgres"
	orderservice "github.com/dkarlss/storefront/internal/order/service"
	paymenthandler "github.com/dkarlss/storefront/internal/payment/handler/http"
	"github.com/dkarlss/storefront/internal/payment/provider"
	mockprovider "github.com/dkarlss/storefront/internal/payment/provider/mock"
	stripeprovider "github.com/dkarlss/storefront/internal/payment/provider/stripe"
	paymentservice "github.com/dkarlss/storefront/internal/payment/service"
	"github.com/dkarlss/storefront/migrations"
	"github.com/dkarlss/storefront/pkg/database"
	"github.com/dkarlss/storefront/pkg/health"
	"github.com/dkarlss/storefront/pkg/httpclient"
	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
	"github.com/dkarlss/storefront/pkg/middleware"
	"github.com/dkarlss/storefront/pkg/tracing"
)

// App holds the long-lived components of the storefront server.
type App struct {
	cfg            *config.Config
	log            *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// New initializes every dependency and returns a ready-to-run application.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSample,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	log.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Cart: Redis-backed, derived totals, scoped per user.
	cartRepo := cartredis.NewCartRepository(redisClient, cfg.CartTTL, log)
	cartProducer := cartevent.NewProducer(producer, log)
	cartService := cartservice.NewCartService(cartRepo, cartProducer, log, cfg.Currency)

	// Orders and returns: append-only Postgres records.
	orderRepo := orderpostgres.NewOrderRepository(pool)
	returnRepo := orderpostgres.NewReturnRepository(pool)
	orderProducer := orderevent.NewProducer(producer, log)
	orderService := orderservice.NewOrderService(orderRepo, returnRepo, orderProducer, log)

	// Payment relay over the configured gateway.
	relay := paymentservice.NewRelay(newPaymentProvider(cfg, log), log)

	// Checkout: session pinning, server-side quotes, confirm ordering.
	sessionRepo := checkoutredis.NewSessionRepository(redisClient, cfg.CheckoutSessionTTL)
	pricing := checkoutdomain.Pricing{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               cfg.TaxRate,
	}
	checkoutService := checkoutservice.NewCheckoutService(
		sessionRepo, cartService, relay, orderService,
		pricing, cfg.CheckoutSessionTTL, cfg.Currency, log,
	)

	// Identity: JWT pairs with rotated refresh tokens.
	tokenManager := identityauth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	identityService := identityservice.NewIdentityService(
		identitypostgres.NewUserRepository(pool),
		identitypostgres.NewTokenRepository(pool),
		tokenManager,
		identityevent.NewProducer(producer, log),
		log,
	)

	// Catalog: upstream product API behind a circuit breaker and Redis cache.
	breaker := httpclient.NewBreakerClient("catalog", httpclient.DefaultConfig(), httpclient.DefaultBreakerConfig(), log)
	catalog := catalogclient.New(breaker, redisClient, cfg.CatalogBaseURL, cfg.CatalogCacheTTL, log)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	identityHandler := identityhandler.NewIdentityHandler(identityService, log)

	verify := func(token string) (*middleware.Claims, error) {
		claims, err := identityService.VerifyAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Email: claims.Email}, nil
	}

	router := newRouter(cfg, handlers{
		catalog:        cataloghandler.NewCatalogHandler(catalog, log),
		identityPublic: identityHandler.RegisterPublicRoutes,
		identityMe:     identityHandler.RegisterProtectedRoutes,
		cart:           carthandler.NewCartHandler(cartService, log),
		checkout:       checkouthandler.NewCheckoutHandler(checkoutService, log),
		orders:         orderhandler.NewOrderHandler(orderService, log),
		payment:        paymenthandler.NewPaymentHandler(checkoutService, log),
	}, verify, healthHandler, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		log:            log,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newPaymentProvider selects the gateway. Stripe is the default; the in-memory
// provider backs development and tests, and is the fallback when no Stripe key
// is configured in development.
func newPaymentProvider(cfg *config.Config, log *slog.Logger) provider.Provider {
	if cfg.PaymentProvider == "stripe" && cfg.StripeSecretKey != "" {
		log.Info("payment provider: stripe")
		return stripeprovider.NewProvider(cfg.StripeSecretKey)
	}
	log.Warn("payment provider: mock", slog.String("configured", cfg.PaymentProvider))
	return mockprovider.NewProvider()
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown drains in-flight requests, flushes spans, then closes the
// messaging and storage clients.
func (a *App) Shutdown() error {
	a.log.Info("shutting down")

	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("http server shutdown", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tctx, tcancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tcancel()
		if err := a.tracerShutdown(tctx); err != nil {
			a.log.Error("tracer shutdown", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.log.Error("kafka producer close", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.redis.Close(); err != nil {
		a.log.Error("redis close", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
