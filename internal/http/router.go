// Package httpapi wires the HTTP transport (Gin) to the ledger services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, redacted logging, panic recovery, compression,
// metrics, identity, idempotency screening, rate limiting, CORS, and
// security headers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/affiliate-ledger/docs"
	"github.com/tbourn/affiliate-ledger/internal/config"
	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/http/handlers"
	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/repo"
	"github.com/tbourn/affiliate-ledger/internal/services"
)

// listingRepoShim adapts the repository free functions to the
// services.ListingRepo interface.
type listingRepoShim struct{}

func (listingRepoShim) CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	return repo.CreateListing(ctx, db, l)
}

func (listingRepoShim) GetListing(ctx context.Context, db *gorm.DB, id int64) (*domain.Listing, error) {
	return repo.GetListing(ctx, db, id)
}

func (listingRepoShim) CountListings(ctx context.Context, db *gorm.DB, companyID int64) (int64, error) {
	return repo.CountListings(ctx, db, companyID)
}

func (listingRepoShim) ListListingsPage(ctx context.Context, db *gorm.DB, companyID int64, offset, limit int) ([]domain.Listing, error) {
	return repo.ListListingsPage(ctx, db, companyID, offset, limit)
}

func (listingRepoShim) SetStock(ctx context.Context, db *gorm.DB, id, companyID int64, stock *int64) error {
	return repo.SetStock(ctx, db, id, companyID, stock)
}

func (listingRepoShim) GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r. db is the
// ledger handle; notifier (may be nil) receives committed purchases.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter, gzip
//  6. Metrics
//  7. Identity (the rate limiter keys on it)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, notifier services.Notifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))
	r.Use(middleware.Recovery())

	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identity := middleware.IdentityOptions{AllowHeader: cfg.AllowUserHeader}
	if cfg.JWTSecret != "" {
		identity.JWTSecret = []byte(cfg.JWTSecret)
	}
	r.Use(middleware.Identity(identity))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MinLen: cfg.Ledger.IdempotencyKeyMinLen},
		func(ctx context.Context, key string) (bool, error) {
			_, err := repo.FindPurchaseByKey(ctx, db, key)
			if err != nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsHandlers(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	purchaseSvc := &services.PurchaseService{
		DB:          db,
		Split:       services.NewSplitPolicy(cfg.Ledger.InfluencerRate, cfg.Ledger.PlatformRate),
		Notifier:    notifier,
		MaxQuantity: cfg.Ledger.MaxQuantity,
		KeyMinLen:   cfg.Ledger.IdempotencyKeyMinLen,
	}
	listingSvc := services.NewListingService(db, listingRepoShim{})
	listingSvc.MaxQuantity = cfg.Ledger.MaxQuantity
	userSvc := &services.UserService{DB: db}
	reportSvc := &services.ReportService{DB: db}

	apiBase := cfg.APIBasePath
	h := handlers.New(purchaseSvc, listingSvc, userSvc, reportSvc, apiBase)

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/users", h.CreateUser)
		api.GET("/users/:id", h.GetUser)

		api.POST("/listings", h.CreateListing)
		api.GET("/listings", h.ListListings)
		api.GET("/listings/:id", h.GetListing)
		api.PUT("/listings/:id/stock", h.SetStock)
		api.GET("/listings/:id/purchase-token", h.PurchaseToken)

		api.POST("/purchases", h.CreatePurchase)
		api.GET("/purchases/:id", h.GetPurchase)

		api.GET("/me/purchases", h.MyPurchases)
		api.GET("/me/sales", h.MySales)

		api.GET("/company/purchases", h.CompanyPurchases)
		api.POST("/company/purchases/:id/handle", h.HandlePurchase)
		api.GET("/company/stats", h.CompanyStats)

		api.GET("/notifications", h.Notifications)
	}
}

// health reports liveness and whether the ledger store answers a ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("health: store unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "up"})
	}
}

// corsHandlers returns the CORS middleware chain. With no allowlist every
// origin is allowed (without credentials); otherwise allowed origins are
// echoed back.
func corsHandlers(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "Location", "ETag", handlers.HeaderReplayed, "Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header, so plain health checks see it.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body size for all endpoints to maxBytes.
// Requests exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
