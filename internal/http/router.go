// Package httpapi wires the HTTP transport (Gin) to the per-kind consoles,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
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

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/config"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/docs"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/http/handlers"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/http/middleware"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/repo"
)

// journalShim adapts the repository journal functions to the
// handlers.Journal interface. Replays older than ttl are ignored.
type journalShim struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func newJournalShim(db *gorm.DB, ttl time.Duration) journalShim {
	return journalShim{db: db, ttl: ttl, now: time.Now}
}

// Record proxies repo.RecordAction.
func (j journalShim) Record(ctx context.Context, rec *domain.ActionRecord) error {
	return repo.RecordAction(ctx, j.db, rec)
}

// Replay proxies repo.FindReplay within the TTL window. A missing record is
// reported as (nil, nil).
func (j journalShim) Replay(ctx context.Context, kind, id, key string) (*domain.ActionRecord, error) {
	rec, err := repo.FindReplay(ctx, j.db, kind, id, key, j.now().UTC().Add(-j.ttl))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// History proxies repo.ListActions and repo.CountActions.
func (j journalShim) History(ctx context.Context, kind, id string, offset, limit int) ([]domain.ActionRecord, int64, error) {
	total, err := repo.CountActions(ctx, j.db, kind, id)
	if err != nil {
		return nil, 0, err
	}
	recs, err := repo.ListActions(ctx, j.db, kind, id, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// Stats proxies repo.JournalStats.
func (j journalShim) Stats(ctx context.Context, kind, id string) (int64, *time.Time, error) {
	return repo.JournalStats(ctx, j.db, kind, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Routes: classify kind, operation and entity id once
//  4. RedactingLogger: request-scoped logger and scrubbed access log
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per client, kind and read/write class; bypass on replay)
//  10. Response compression
//  11. CORS and Security headers
//
// db backs the action journal; it is used for idempotent replays and the
// history endpoint regardless of where the consoles' backends live.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, consoles []handlers.Console, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Route classification shared by everything below
	r.Use(middleware.Routes(cfg.APIBasePath))

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting). Keys are scoped by
	// the entity kind of the route and the :id path param.
	journal := newJournalShim(db, cfg.IdempotencyTTL)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, kind, id, key string, now time.Time) (bool, error) {
			if kind == "" || id == "" {
				return false, nil
			}
			rec, err := repo.FindReplay(ctx, db, kind, id, key, now.Add(-cfg.IdempotencyTTL))
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		Read:  middleware.Limit{RPS: cfg.RateRPS, Burst: cfg.RateBurst},
		Write: middleware.Limit{RPS: cfg.RateWriteRPS, Burst: cfg.RateWriteBurst},
	})
	r.Use(rl.Handler())

	// 10) Compression for list and detail payloads
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 11) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderOperatorID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderOperatorID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers and the console cache policy (HSTS only when enabled
	// and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(consoles, journal)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	for _, kind := range h.Kinds() {
		g := api.Group("/"+kind.Plural(), h.BindKind(kind))

		// List
		g.GET("", h.GetList)
		g.POST("/fetch", h.FetchList)
		g.PUT("/filters", h.SetFilters)
		g.DELETE("/filters", h.ClearFilters)
		g.PUT("/page", h.SetPage)
		g.PUT("/limit", h.SetLimit)
		g.POST("/prefetch", h.Prefetch)

		// Selection
		g.GET("/selection", h.GetSelection)
		g.POST("/selection/:id", h.ToggleSelection)
		g.DELETE("/selection", h.ClearSelection)

		// Detail, actions and edits
		g.GET("/:id", h.GetDetail)
		g.PATCH("/:id", h.SubmitEdit)
		g.GET("/:id/actions", h.GetActions)
		g.POST("/:id/actions/:action", h.RunAction)
		g.POST("/:id/edit", h.BeginEdit)
		g.GET("/:id/history", h.GetHistory)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
