package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scalp-backend/internal/shared/telemetry"
)

var quietRoutes = map[string]bool{
	"/metrics":       true,
	"/api/v1/health": true,
}

// Logging emits one structured line per request. Probe routes are skipped;
// 5xx responses log at error, 4xx at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || quietRoutes[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get("isGuest")
		sessionID := c.GetString("sessionId")
		if sessionID == "" {
			sessionID = c.Param("id")
		}

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           userID,
			"session_id":        sessionID,
			"is_guest":          isGuest,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
