// Package api wires together all HTTP routes for the audit service.
//
// Route grouping philosophy:
//   - System endpoints (/health, /ready, /version) are unauthenticated so
//     load balancers and orchestrators can probe them without credentials.
//   - Everything under /api/v1/orgs/:org requires a bearer token whose
//     organization claim matches the :org path segment. The path is the only
//     source of the partition a request operates on.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/audittrail/audittrail/internal/auth"
	"github.com/audittrail/audittrail/internal/config"
	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/db/repositories"
	"github.com/audittrail/audittrail/internal/export"
	"github.com/audittrail/audittrail/internal/jobs"
	"github.com/audittrail/audittrail/internal/middleware"
	"github.com/audittrail/audittrail/internal/safego"
	"github.com/audittrail/audittrail/internal/services"
)

// Version is the service version reported by /version. Overridable at build
// time with -ldflags "-X github.com/audittrail/audittrail/internal/api.Version=...".
var Version = "0.1.0"

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	retentionJob   *jobs.RetentionJob
	rateLimitStore middleware.RateLimitStore
	shipper        export.Shipper
	cancel         context.CancelFunc
}

// Shutdown stops all background goroutines and flushes the export pipeline.
// It should be called after the HTTP server has been shut down so in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	bg.cancel()
	if bg.retentionJob != nil {
		bg.retentionJob.Stop()
	}
	if bg.rateLimitStore != nil {
		bg.rateLimitStore.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close export pipeline", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	// Repositories
	auditLogRepo := repositories.NewAuditLogRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	subCategoryRepo := repositories.NewSubCategoryRepository(db)
	actionTypeRepo := repositories.NewActionTypeRepository(db)

	// Export pipeline
	shipper, err := export.NewMultiShipper(cfg.Audit.Export)
	if err != nil {
		return nil, nil, err
	}

	// Services
	resolver := services.NewReferenceResolver(categoryRepo, subCategoryRepo, actionTypeRepo)
	auditLogService := services.NewAuditLogService(auditLogRepo, resolver, shipper)

	// Auth
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	// Rate limiting
	rateLimitStore, err := middleware.NewRateLimitStore(cfg.Security.RateLimiting)
	if err != nil {
		return nil, nil, err
	}

	// Retention job
	jobCtx, cancel := context.WithCancel(context.Background())
	retentionJob := jobs.NewRetentionJob(db, cfg.Audit.RetentionDays, cfg.Audit.RetentionCheckIntervalHours)
	safego.Go(func() { retentionJob.Start(jobCtx) })

	// Middleware chain
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())

	// System endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, rateLimitStore))
	router.GET("/version", versionHandler())

	// Handlers
	auditLogHandlers := NewAuditLogHandlers(auditLogService, cfg.Pagination, cfg.Audit.DefaultLocale)
	categoryHandlers := NewReferenceHandlers(
		categoryRepo,
		func(name string, description *string) *models.Category {
			return &models.Category{Name: name, Description: description}
		},
		services.NewCategoryDTO,
		cfg.Pagination, cfg.Audit.DefaultLocale,
	)
	subCategoryHandlers := NewReferenceHandlers(
		subCategoryRepo,
		func(name string, description *string) *models.SubCategory {
			return &models.SubCategory{Name: name, Description: description}
		},
		services.NewSubCategoryDTO,
		cfg.Pagination, cfg.Audit.DefaultLocale,
	)
	actionTypeHandlers := NewReferenceHandlers(
		actionTypeRepo,
		func(name string, description *string) *models.ActionType {
			return &models.ActionType{Name: name, Description: description}
		},
		services.NewActionTypeDTO,
		cfg.Pagination, cfg.Audit.DefaultLocale,
	)

	// Organization-scoped API
	orgs := router.Group("/api/v1/orgs/:org")
	orgs.Use(middleware.AuthMiddleware(tokens))
	orgs.Use(middleware.RequireOrganization())
	if cfg.Security.RateLimiting.Enabled {
		orgs.Use(middleware.RateLimitMiddleware(rateLimitStore, cfg.Security.RateLimiting.RequestsPerMinute))
	}
	{
		orgs.POST("/audit-logs", auditLogHandlers.Create)
		orgs.GET("/audit-logs", auditLogHandlers.List)

		registerReferenceRoutes(orgs.Group("/categories"), categoryHandlers)
		registerReferenceRoutes(orgs.Group("/sub-categories"), subCategoryHandlers)
		registerReferenceRoutes(orgs.Group("/action-types"), actionTypeHandlers)
	}

	bg := &BackgroundServices{
		retentionJob:   retentionJob,
		rateLimitStore: rateLimitStore,
		shipper:        shipper,
		cancel:         cancel,
	}

	return router, bg, nil
}

// registerReferenceRoutes registers the shared CRUD routes for one reference
// table.
func registerReferenceRoutes[T models.Entity](g *gin.RouterGroup, h *ReferenceHandlers[T]) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// healthCheckHandler returns the health status of the service, including
// database connectivity.
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns whether the service is ready to accept traffic.
// Unlike the liveness probe (/health), this also probes the rate limit store
// when it has an external dependency, so a readiness gate fails when requests
// would error.
func readinessHandler(db *sqlx.DB, store middleware.RateLimitStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(c.Request.Context()); err != nil {
				checks["rate_limit_store"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "rate limit store not ready",
				})
				return
			}
			checks["rate_limit_store"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware logs every request as one structured slog record. Output
// format (JSON or text) follows the handler installed by telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}
