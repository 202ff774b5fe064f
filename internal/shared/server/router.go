package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "scalp-backend/internal/auth"
	"scalp-backend/internal/results"
	"scalp-backend/internal/session"
	"scalp-backend/internal/shared/config"
	"scalp-backend/internal/shared/metrics"
	"scalp-backend/internal/shared/server/middleware"
	"scalp-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config         config.Config
	SessionHandler *session.Handler
	ResultsHandler *results.Handler
	GoogleAuth     *googleauth.GoogleService
	RateLimiter    *middleware.RateLimiter
	// Ready reports backing-store health; nil means always ready.
	Ready func(ctx context.Context) error
}

const (
	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"
	rateGroupUpload  = "UPLOAD"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	r.GET("/api/v1/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unavailable"})
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(cfg.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: 2, Burst: 20},
				rateGroupPolling: {Rate: 10, Burst: 40},
				rateGroupUpload:  {Rate: 0.5, Burst: 6},
			},
		}),
	)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api, cfg.LoginURL)
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(api)
	}
	if deps.ResultsHandler != nil {
		deps.ResultsHandler.RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodGet {
		return rateGroupPolling
	}
	if c.Request.Method == http.MethodPut && c.FullPath() == "/api/v1/sessions/:id/images/:view" {
		return rateGroupUpload
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
