package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "github.com/shipflow/backend/docs"
	"github.com/shipflow/backend/internal/infrastructure/logger"
	"github.com/shipflow/backend/internal/interfaces/http/handler"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// Handlers are the API endpoints served by the engine
type Handlers struct {
	Warehouse *handler.WarehouseHandler
	Order     *handler.OrderHandler
	Billing   *handler.BillingHandler
	Carrier   *handler.CarrierHandler
	Webhook   *handler.WebhookHandler
	Health    *handler.HealthHandler
}

// Options tune the engine's middleware
type Options struct {
	Logger         *zap.Logger
	MaxBodyBytes   int64
	Limiter        *middleware.RateLimiter
	TrustedProxies []string
	// ServiceName names the server spans
	ServiceName string
	// TracerProvider enables request spans when set
	TracerProvider trace.TracerProvider
	// Swagger serves the API documentation under /swagger
	Swagger bool
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(h Handlers, opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	// request id and caller run first so the request log carries both
	engine.Use(
		middleware.Tracing(opts.ServiceName, opts.TracerProvider),
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.User(),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		middleware.Secure(),
	)
	if opts.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	}
	if opts.Limiter != nil {
		engine.Use(middleware.RateLimit(opts.Limiter))
	}

	engine.GET("/health", h.Health.Health)
	if opts.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := NewRouter(engine)
	r.Register(NewDomainGroup("health", "/health").
		GET("", h.Health.Health))
	r.Register(NewDomainGroup("warehouses", "/warehouses").
		POST("", h.Warehouse.Create).
		GET("", h.Warehouse.List).
		GET("/:id", h.Warehouse.GetByID).
		DELETE("/:id", h.Warehouse.Delete))
	r.Register(NewDomainGroup("orders", "/orders").
		POST("/lines", h.Order.AttachLine).
		GET("/:id", h.Order.GetByID).
		POST("/:id/quote", h.Order.Quote).
		POST("/:id/pay", h.Order.Pay).
		POST("/:id/cancel", h.Order.Cancel))
	r.Register(NewDomainGroup("balance", "/balance").
		GET("", h.Billing.GetBalance).
		GET("/credits", h.Billing.ListCredits).
		POST("/credits", h.Billing.PurchaseCredits))
	r.Register(NewDomainGroup("carriers", "/carriers").
		GET("", h.Carrier.List).
		GET("/types", h.Carrier.Types).
		POST("", h.Carrier.Connect))
	r.Register(NewDomainGroup("webhooks", "/webhooks").
		POST("/tracking", h.Webhook.Tracking))
	r.Setup()

	return engine, nil
}
