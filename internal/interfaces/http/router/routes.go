package router

import (
	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the endpoint groups the server exposes
type Handlers struct {
	Stock     *handler.StockHandler
	Valuation *handler.ValuationHandler
	Counts    *handler.InventoryCountHandler
	Outbox    *handler.OutboxHandler
	Auth      *handler.AuthHandler
	System    *handler.SystemHandler
}

// EngineConfig selects the cross-cutting middleware of the engine
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	Auth           middleware.AuthConfig
	Security       middleware.SecurityConfig
	TracingEnabled bool
	Profiling      bool
	Meter          *telemetry.MeterProvider
	MaxBodyBytes   int64
	TrustedProxies []string
	// RateLimiter is applied per organization after authentication; nil disables it
	RateLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine: global middleware, health probes on the
// root, and every ledger route under /api/v1 behind authentication.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.SecureWithConfig(cfg.Security),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(cfg.Logger),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.HTTPMetrics(cfg.Meter),
	)

	if h.System != nil {
		engine.GET("/health", h.System.Live)
		engine.GET("/health/ready", h.System.Ready)
	}

	apiMiddleware := []gin.HandlerFunc{
		middleware.Authenticate(cfg.Auth),
		middleware.TracingAttributeInjector(),
		middleware.Profiling(cfg.Profiling),
	}
	if cfg.RateLimiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(cfg.RateLimiter))
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithMiddleware(apiMiddleware...))
	r.Register(Groups(h)...)
	r.Setup()
	return engine, nil
}

// Groups returns the domain route groups with their permission guards
func Groups(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar

	if h.Stock != nil {
		stock := NewDomainGroup("stock", "/stock").
			Use(middleware.RequirePermission(auth.PermStockWrite))
		stock.POST("/entries", h.Stock.Receive).
			POST("/exits", h.Stock.Issue).
			POST("/pickings", h.Stock.Pick).
			POST("/returns", h.Stock.Return).
			POST("/transfers", h.Stock.Transfer).
			POST("/reservations", h.Stock.Reserve).
			POST("/reservations/release", h.Stock.Release).
			POST("/adjustments", h.Stock.Adjust)

		items := NewDomainGroup("stock-items", "/stock-items")
		items.GET("", middleware.RequirePermission(auth.PermStockRead), h.Stock.ListItems).
			GET("/:id", middleware.RequirePermission(auth.PermStockRead), h.Stock.GetItem).
			PUT("/:id/unit-cost", middleware.RequirePermission(auth.PermStockWrite), h.Stock.UpdateUnitCost)

		movements := NewDomainGroup("stock-movements", "/stock-movements").
			Use(middleware.RequirePermission(auth.PermStockRead))
		movements.GET("", h.Stock.ListMovements).
			GET("/:id", h.Stock.GetMovement)

		groups = append(groups, stock, items, movements)
	}

	if h.Valuation != nil {
		valuation := NewDomainGroup("valuation", "/valuation").
			Use(middleware.RequirePermission(auth.PermStockRead))
		valuation.GET("/average-cost", h.Valuation.AverageCost).
			GET("/fifo-cost", h.Valuation.FIFOCost).
			GET("/total", h.Valuation.TotalValue).
			POST("/projection", h.Valuation.Projection).
			GET("/coverage", h.Valuation.Coverage).
			GET("/turnover", h.Valuation.Turnover)
		groups = append(groups, valuation)
	}

	if h.Counts != nil {
		read := middleware.RequireAnyPermission(auth.PermStockRead, auth.PermCountWrite)
		write := middleware.RequirePermission(auth.PermCountWrite)
		counts := NewDomainGroup("inventory-counts", "/inventory-counts")
		counts.POST("", write, h.Counts.Initiate).
			GET("", read, h.Counts.List).
			POST("/anomalies", read, h.Counts.Anomalies).
			POST("/accuracy", read, h.Counts.Accuracy).
			POST("/finalization-check", read, h.Counts.FinalizationCheck).
			GET("/:id", read, h.Counts.Get).
			GET("/:id/validation", read, h.Counts.Validate).
			POST("/:id/start", write, h.Counts.Start).
			POST("/:id/record", write, h.Counts.Record).
			POST("/:id/cancel", write, h.Counts.Cancel).
			POST("/:id/reconcile", middleware.RequirePermission(auth.PermCountReconcile), h.Counts.Reconcile)
		groups = append(groups, counts)
	}

	if h.Outbox != nil {
		outbox := NewDomainGroup("outbox", "/admin/outbox").
			Use(middleware.RequirePermission(auth.PermOutboxAdmin))
		outbox.GET("/stats", h.Outbox.Stats).
			GET("/dead", h.Outbox.DeadLetters).
			POST("/dead/retry", h.Outbox.RetryAllDeadEntries).
			GET("/entries/:id", h.Outbox.GetEntry).
			POST("/entries/:id/retry", h.Outbox.RetryDeadEntry)
		groups = append(groups, outbox)
	}

	if h.Auth != nil {
		authGroup := NewDomainGroup("auth", "/auth")
		authGroup.POST("/revoke", h.Auth.Revoke)
		groups = append(groups, authGroup)
	}

	if h.System != nil {
		system := NewDomainGroup("system", "/system")
		system.GET("/info", h.System.Info)
		groups = append(groups, system)
	}

	return groups
}
