package results

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scalp-backend/internal/shared/server/middleware"
	"scalp-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the results service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches result routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/results", h.listResults)
	rg.GET("/results/:id", h.getResult)
}

func (h *Handler) getResult(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	if !caller.Authenticated() {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view results", nil)
		return
	}
	rec, err := h.Svc.Get(c.Request.Context(), caller.UserID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "result not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch result", nil)
		}
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) listResults(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	if !caller.Authenticated() {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := h.Svc.List(c.Request.Context(), caller.UserID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list results", nil)
		return
	}

	resp := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, gin.H{
			"resultId":  r.ID,
			"sessionId": r.SessionID,
			"stage":     r.Result.Stage,
			"title":     r.Result.Title,
			"createdAt": r.CreatedAt,
		})
	}
	respond.JSON(c, http.StatusOK, resp)
}
