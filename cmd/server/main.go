package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/application/address"
	billingapp "github.com/shipflow/backend/internal/application/billing"
	catalogapp "github.com/shipflow/backend/internal/application/catalog"
	"github.com/shipflow/backend/internal/application/fulfillment"
	integrationapp "github.com/shipflow/backend/internal/application/integration"
	partnerapp "github.com/shipflow/backend/internal/application/partner"
	"github.com/shipflow/backend/internal/domain/billing"
	"github.com/shipflow/backend/internal/infrastructure/cache"
	"github.com/shipflow/backend/internal/infrastructure/config"
	"github.com/shipflow/backend/internal/infrastructure/event"
	"github.com/shipflow/backend/internal/infrastructure/logger"
	"github.com/shipflow/backend/internal/infrastructure/payment"
	"github.com/shipflow/backend/internal/infrastructure/persistence"
	"github.com/shipflow/backend/internal/infrastructure/provider"
	"github.com/shipflow/backend/internal/infrastructure/scheduler"
	"github.com/shipflow/backend/internal/infrastructure/storefront"
	"github.com/shipflow/backend/internal/infrastructure/telemetry"
	"github.com/shipflow/backend/internal/interfaces/http/handler"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
	"github.com/shipflow/backend/internal/interfaces/http/router"
)

//	@title			Shipflow API
//	@version		1.0
//	@description	Fulfillment orchestration for storefront orders: parcels, rate shopping, labels and prepaid shipping credits.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	UserID
//	@in							header
//	@name						X-User-ID
//	@description				Calling merchant's user ID

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log, cfg.App.Env))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	tel, err := telemetry.New(context.Background(), telemetry.FromAppConfig(cfg.Telemetry, cfg.App.Name, version), log.Named("telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	log = tel.Bridge(log)

	log.Info("Starting Shipflow",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.InstrumentDB(db.DB, cfg.Database.DBName); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	stores, err := cache.NewStores(cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()

	// Outbound clients
	providerClient, err := provider.NewClient(provider.Config{
		BaseURL: cfg.Shipping.ProviderURL,
		APIKey:  cfg.Shipping.PlatformAPIKey,
		Timeout: cfg.Shipping.RequestTimeout,
	}, log.Named("provider"))
	if err != nil {
		log.Fatal("Failed to create shipping provider client", zap.Error(err))
	}

	var payments billing.PaymentProcessor
	if cfg.Stripe.SecretKey != "" {
		stripeProcessor, err := payment.NewStripeProcessor(payment.StripeConfig{
			SecretKey: cfg.Stripe.SecretKey,
			Currency:  cfg.Stripe.Currency,
			Timeout:   cfg.Stripe.Timeout,
		}, log.Named("stripe"))
		if err != nil {
			log.Fatal("Failed to create payment processor", zap.Error(err))
		}
		payments = stripeProcessor
	} else {
		log.Warn("Stripe secret key not set, credit purchases are disabled")
	}

	storefronts, err := storefront.NewRegistryFromConfig(cfg.Storefront, log.Named("storefront"))
	if err != nil {
		log.Fatal("Failed to configure storefronts", zap.Error(err))
	}

	// Application services
	resolver := address.NewResolver(providerClient, stores.AddressCache, cfg.Shipping.AddressCacheTTL, log.Named("address"))
	ledger := billingapp.NewLedger(txScope, repos.Balances, repos.Credits, payments, log.Named("ledger"))
	matcher := catalogapp.NewMatcher(txScope, storefronts, cfg.Storefront.SupplierLinkBase, log.Named("catalog"))
	aggregator := fulfillment.NewOrderAggregator(txScope, repos, matcher, resolver, log.Named("aggregator"))
	registry := fulfillment.NewCarrierAccountRegistry(repos.Accounts, repos.Carriers, providerClient, fulfillment.PlatformPool{
		APIKey:     cfg.Shipping.PlatformAPIKey,
		CarrierIDs: cfg.Shipping.PlatformCarrierIDs,
		Reserved:   cfg.Shipping.ReservedCarriers,
	}, log.Named("carriers"))
	rateShopper := fulfillment.NewRateShopper(txScope, repos, resolver, registry, providerClient, fulfillment.RateShopperConfig{
		Markup:      cfg.Shipping.Markup,
		QuoteTTL:    cfg.Shipping.QuoteTTL,
		LogoBaseURL: cfg.Shipping.LogoBaseURL,
	}, log.Named("rates"))
	warehouseService := partnerapp.NewWarehouseService(repos.Warehouses, repos.Orders, resolver, log.Named("warehouse"))

	// Storefront notification runs after the payment commits
	bus := event.NewInMemoryEventBus(log.Named("events"), event.WithAsyncDispatch())
	shipmentService := fulfillment.NewShipmentService(txScope, repos, registry, providerClient, ledger, bus,
		cfg.Shipping.LabelTimeout, log.Named("shipments"))
	notifier := integrationapp.NewFulfillmentNotifier(txScope, repos, storefronts, cfg.Notify.MaxAttempts, log.Named("notifier"))
	bus.Subscribe(event.NewIdempotentHandler(
		integrationapp.NewShipmentEventHandler(notifier, log.Named("notifier")),
		stores.Idempotency,
		log.Named("events"),
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	retryJob := scheduler.NewNotificationRetryJob(cfg.Notify, notifier, log)
	if err := retryJob.Start(ctx); err != nil {
		log.Fatal("Failed to start notification retry job", zap.Error(err))
	}

	// HTTP
	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	defer limiter.Stop()

	engine, err := router.NewEngine(router.Handlers{
		Warehouse: handler.NewWarehouseHandler(warehouseService),
		Order:     handler.NewOrderHandler(aggregator, rateShopper, shipmentService),
		Billing:   handler.NewBillingHandler(ledger),
		Carrier:   handler.NewCarrierHandler(registry),
		Webhook:   handler.NewWebhookHandler(shipmentService, stores.Idempotency, cfg.Shipping.WebhookSecret, 0),
		Health: handler.NewHealthHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
			"cache":    stores.Ping,
		}),
	}, router.Options{
		Logger:         log,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Limiter:        limiter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		ServiceName:    cfg.App.Name,
		TracerProvider: tracerProvider(tel),
		Swagger:        cfg.App.Env != "production",
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := retryJob.Stop(shutdownCtx); err != nil {
		log.Error("Notification retry job did not stop cleanly", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// tracerProvider returns nil when tracing is off so no request spans are opened
func tracerProvider(tel *telemetry.Provider) trace.TracerProvider {
	if !tel.Enabled() {
		return nil
	}
	return tel.TracerProvider()
}
