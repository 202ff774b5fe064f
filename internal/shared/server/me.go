package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scalp-backend/internal/shared/server/middleware"
	"scalp-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID        string `json:"userId"`
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	// LoginURL is offered to guests so the client can sign in before saving a result.
	LoginURL string `json:"loginUrl,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup, loginURL string) {
	rg.GET("/me", func(c *gin.Context) {
		id := middleware.IdentityFromContext(c)
		if id.UserID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		resp := meResponse{
			UserID:        id.UserID,
			Authenticated: id.Authenticated(),
			Email:         middleware.UserEmailFromContext(c),
			Name:          middleware.UserNameFromContext(c),
			Picture:       middleware.UserPictureFromContext(c),
		}
		if !resp.Authenticated {
			resp.LoginURL = loginURL
		}
		respond.OK(c, resp)
	})
}
