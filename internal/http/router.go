// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
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

	"github.com/notehaven/go-notes-backend/internal/assist"
	"github.com/notehaven/go-notes-backend/internal/cache"
	"github.com/notehaven/go-notes-backend/internal/config"
	"github.com/notehaven/go-notes-backend/internal/domain"
	"github.com/notehaven/go-notes-backend/internal/http/handlers"
	"github.com/notehaven/go-notes-backend/internal/http/middleware"
	"github.com/notehaven/go-notes-backend/internal/repo"
	"github.com/notehaven/go-notes-backend/internal/services"
)

// noteRepoShim adapts the repository free functions to the services.NoteRepo
// interface expected by the NoteService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type noteRepoShim struct{}

// CreateNote proxies repo.CreateNote.
func (noteRepoShim) CreateNote(ctx context.Context, db *gorm.DB, ownerID, title, content, format, color string, pinned bool) (*domain.Note, error) {
	return repo.CreateNote(ctx, db, ownerID, title, content, format, color, pinned)
}

// GetNote proxies repo.GetNote.
func (noteRepoShim) GetNote(ctx context.Context, db *gorm.DB, ownerID, id string) (*domain.Note, error) {
	return repo.GetNote(ctx, db, ownerID, id)
}

// UpdateNote proxies repo.UpdateNote.
func (noteRepoShim) UpdateNote(ctx context.Context, db *gorm.DB, ownerID, id string, fields map[string]any) (*domain.Note, error) {
	return repo.UpdateNote(ctx, db, ownerID, id, fields)
}

// ListNotesPage proxies repo.ListNotesPage.
func (noteRepoShim) ListNotesPage(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool, offset, limit int) ([]domain.Note, error) {
	return repo.ListNotesPage(ctx, db, ownerID, includeDeleted, offset, limit)
}

// CountNotes proxies repo.CountNotes.
func (noteRepoShim) CountNotes(ctx context.Context, db *gorm.DB, ownerID string, includeDeleted bool) (int64, error) {
	return repo.CountNotes(ctx, db, ownerID, includeDeleted)
}

// SearchNotesPage proxies repo.SearchNotesPage.
func (noteRepoShim) SearchNotesPage(ctx context.Context, db *gorm.DB, ownerID, term string, offset, limit int) ([]domain.Note, error) {
	return repo.SearchNotesPage(ctx, db, ownerID, term, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store cache.Store, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
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

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache/backends
	noteSvc := services.NewNoteService(db, noteRepoShim{}, store)
	if cfg.CacheTTL > 0 {
		noteSvc.CacheTTL = cfg.CacheTTL
	}

	orch := assist.NewOrchestrator(backendFromConfig(cfg), store)
	if cfg.AICacheTTL > 0 {
		orch.PrimaryTTL = cfg.AICacheTTL
	}
	if cfg.AI.Timeout > 0 {
		orch.Timeout = cfg.AI.Timeout
	}

	h := handlers.New(noteSvc, orch)

	// Public API
	api := r.Group(cfg.APIBasePath)
	{
		// Notes
		api.POST("/notes", h.CreateNote)
		api.GET("/notes", h.ListNotes)
		api.GET("/notes/count", h.CountNotes)
		api.GET("/notes/search", h.SearchNotes)
		api.GET("/notes/:id", h.GetNote)
		api.PUT("/notes/:id", h.UpdateNote)
		api.DELETE("/notes/:id", h.DeleteNote)
		api.POST("/notes/:id/restore", h.RestoreNote)

		// AI assist
		api.POST("/assist/:kind", h.Assist)
	}
}

// backendFromConfig builds the primary inference backend, or nil when no API
// key is configured.
func backendFromConfig(cfg config.Config) assist.Backend {
	if b := assist.NewOpenAIBackend(cfg.AI.APIKey, cfg.AI.Model); b != nil {
		return b
	}
	return nil
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
