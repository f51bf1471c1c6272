// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, session auth, and rate limiting.
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

	"github.com/NishanthRaveendran/customs-ai/internal/cache"
	"github.com/NishanthRaveendran/customs-ai/internal/config"
	"github.com/NishanthRaveendran/customs-ai/internal/domain"
	"github.com/NishanthRaveendran/customs-ai/internal/http/handlers"
	"github.com/NishanthRaveendran/customs-ai/internal/http/middleware"
	"github.com/NishanthRaveendran/customs-ai/internal/repo"
	"github.com/NishanthRaveendran/customs-ai/internal/services"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type chatRepoShim struct{}

var _ services.ChatRepo = chatRepoShim{}

// ListChats proxies repo.ListChats.
func (chatRepoShim) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}

// ListChatsPage proxies repo.ListChatsPage (pagination support).
func (chatRepoShim) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

// GetChat proxies repo.GetChat.
func (chatRepoShim) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

// GetSharedChat proxies repo.GetSharedChat.
func (chatRepoShim) GetSharedChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	return repo.GetSharedChat(ctx, db, id)
}

// UpsertChat proxies repo.UpsertChat.
func (chatRepoShim) UpsertChat(ctx context.Context, db *gorm.DB, chat *domain.Chat) error {
	return repo.UpsertChat(ctx, db, chat)
}

// UpdateSharePath proxies repo.UpdateSharePath.
func (chatRepoShim) UpdateSharePath(ctx context.Context, db *gorm.DB, id, sharePath string) error {
	return repo.UpdateSharePath(ctx, db, id, sharePath)
}

// DeleteChat proxies repo.DeleteChat.
func (chatRepoShim) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

// DeleteChats proxies repo.DeleteChats.
func (chatRepoShim) DeleteChats(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.DeleteChats(ctx, db, userID)
}

// ChatsStats proxies repo.ChatsStats (ETag support).
func (chatRepoShim) ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.ChatsStats(ctx, db, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, rate
// limiting, CORS and security headers, session auth, health and metrics
// endpoints, and then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (transcripts compress well)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
//  10. Session auth (optional; handlers decide what needs a principal)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, versions *cache.PathVersions, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Api-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (4 MiB; transcripts can be large)
	r.Use(limitBody(4 << 20))

	// 6) Compress JSON responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: true,
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

	// 10) Resolve the session principal when a token is present
	r.Use(middleware.Auth(cfg.Auth.JWTSecret))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeBadRequest, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/invalidator
	chatSvc := services.NewChatService(db, chatRepoShim{}, versions)
	h := handlers.New(chatSvc, versions, cfg.RequiredKeys)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Chats
		api.GET("/chats", h.ListChats)
		api.DELETE("/chats", h.ClearChats)
		api.GET("/chats/:id", h.GetChat)
		api.PUT("/chats/:id", h.SaveChat)
		api.DELETE("/chats/:id", h.RemoveChat)
		api.POST("/chats/:id/share", h.ShareChat)

		// Shared (public, no session required)
		api.GET("/share/:id", h.GetSharedChat)

		// Client configuration probe
		api.GET("/config/missing-keys", h.MissingKeys)
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
