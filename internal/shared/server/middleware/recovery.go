package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"scalp-backend/internal/shared/server/respond"
	"scalp-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 error envelope. Panics in
// background analysis goroutines are recovered by the session service.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				}
				if id := c.Param("id"); id != "" {
					fields["session_id"] = id
				}
				telemetry.Error("panic", fields)
				respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
