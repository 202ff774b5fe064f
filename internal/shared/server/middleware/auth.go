package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
	identityKey    = "identity"
)

// Auth validates JWTs or guest headers and stores identity in context.
// Websocket upgrades may carry the same credentials as the token and guestId
// query parameters, since browsers cannot set headers on them.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if isUpgrade(c.Request) {
			if authHeader == "" {
				if token := strings.TrimSpace(c.Query("token")); token != "" {
					authHeader = "Bearer " + token
				}
			}
			if guestID == "" {
				guestID = strings.TrimSpace(c.Query("guestId"))
			}
		}

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			if claims.Picture != "" {
				c.Set(userPictureKey, claims.Picture)
			}
			c.Set("isGuest", false)
			c.Set(identityKey, auth.Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Token:  token,
			})
			c.Next()
			return
		}

		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		id := auth.Guest(guestID)
		c.Set(userIDKey, id.UserID)
		c.Set("isGuest", true)
		c.Set(identityKey, id)
		c.Next()
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// IdentityFromContext returns the caller identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) auth.Identity {
	if c == nil {
		return auth.Identity{}
	}
	val, _ := c.Get(identityKey)
	if id, ok := val.(auth.Identity); ok {
		return id
	}
	return auth.Identity{}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userPictureKey)
	if picture, ok := val.(string); ok {
		return picture
	}
	return ""
}
