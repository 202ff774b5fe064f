package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scalp-backend/internal/images"
	"scalp-backend/internal/shared/server/middleware"
	"scalp-backend/internal/shared/server/respond"
	"scalp-backend/internal/shared/telemetry"
	"scalp-backend/internal/survey"
)

const (
	multipartOverhead = 1 << 20
	wsWriteTimeout    = 10 * time.Second
	wsPingInterval    = 30 * time.Second
)

// Handler wires HTTP handlers to the session service.
type Handler struct {
	Svc      *Service
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler. Websocket origins are checked against
// allowedOrigins; an empty list allows any origin.
func NewHandler(svc *Service, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		Svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.start)
	rg.GET("/sessions/:id", h.get)
	rg.GET("/sessions/:id/events", h.events)
	rg.POST("/sessions/:id/profile/accept", h.acceptProfile)
	rg.POST("/sessions/:id/profile/decline", h.declineProfile)
	rg.PUT("/sessions/:id/survey/:field", h.setSurveyField)
	rg.POST("/sessions/:id/survey/submit", h.submitSurvey)
	rg.PUT("/sessions/:id/images/:view", h.setImage)
	rg.GET("/sessions/:id/images/:view/preview", h.preview)
	rg.POST("/sessions/:id/analyze", h.startAnalysis)
	rg.POST("/sessions/:id/retry", h.retry)
	rg.POST("/sessions/:id/finish", h.finish)
	rg.POST("/sessions/:id/gate/dismiss", h.dismissLogin)
}

func (h *Handler) start(c *gin.Context) {
	caller := middleware.IdentityFromContext(c)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	snap, err := h.Svc.Start(ctx, caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("sessionId", snap.ID)
	respond.Created(c, snap)
}

func (h *Handler) get(c *gin.Context) {
	snap, err := h.Svc.Get(c.Request.Context(), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) acceptProfile(c *gin.Context) {
	snap, err := h.Svc.AcceptProfile(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("statusTransition", string(StageSelfReport)+"->"+string(snap.Stage))
	respond.OK(c, snap)
}

func (h *Handler) declineProfile(c *gin.Context) {
	editURL, snap, err := h.Svc.DeclineProfile(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"editUrl": editURL, "session": snap})
}

type surveyFieldRequest struct {
	Value *string `json:"value"`
}

func (h *Handler) setSurveyField(c *gin.Context) {
	var req surveyFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "value is required", nil)
		return
	}
	snap, err := h.Svc.SetSurveyField(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c), c.Param("field"), *req.Value)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) submitSurvey(c *gin.Context) {
	snap, err := h.Svc.SubmitSurvey(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("statusTransition", string(StageSelfReport)+"->"+string(snap.Stage))
	respond.OK(c, snap)
}

func (h *Handler) setImage(c *gin.Context) {
	view, err := images.ParseView(c.Param("view"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_view", "view must be top or side", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, images.MaxImageBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, &images.ValidationError{View: view, Reason: images.ReasonTooLarge, Message: "Image must be 10MB or smaller."})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > images.MaxImageBytes {
		h.fail(c, &images.ValidationError{View: view, Reason: images.ReasonTooLarge, Message: "Image must be 10MB or smaller."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, images.MaxImageBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}

	snap, err := h.Svc.SetImage(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c), view, images.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) preview(c *gin.Context) {
	view, err := images.ParseView(c.Param("view"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_view", "view must be top or side", nil)
		return
	}
	asset, err := h.Svc.Preview(c.Request.Context(), c.Param("id"), middleware.IdentityFromContext(c), view)
	if err != nil {
		if errors.Is(err, ErrImagesIncomplete) {
			respond.Error(c, http.StatusNotFound, "not_found", "no image for this view", nil)
			return
		}
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, asset.ContentType, asset.Payload)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	snap, err := h.Svc.StartAnalysis(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("statusTransition", string(StageImageUpload)+"->"+string(StageAnalyzing))
	respond.Accepted(c, snap)
}

func (h *Handler) retry(c *gin.Context) {
	snap, err := h.Svc.Retry(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) finish(c *gin.Context) {
	out, err := h.Svc.Finish(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		if errors.Is(err, ErrLoginRequired) {
			respond.Error(c, http.StatusUnauthorized, "login_required", "Log in to save your result.", gin.H{"loginUrl": out.LoginURL})
			return
		}
		h.fail(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) dismissLogin(c *gin.Context) {
	snap, err := h.Svc.DismissLogin(h.ctx(c), c.Param("id"), middleware.IdentityFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) events(c *gin.Context) {
	id := c.Param("id")
	caller := middleware.IdentityFromContext(c)
	updates, cancel, err := h.Svc.Subscribe(c.Request.Context(), id, caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		telemetry.Warn("session.ws_upgrade_failed", map[string]any{"session_id": id, "error": err.Error()})
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) ctx(c *gin.Context) context.Context {
	c.Set("sessionId", c.Param("id"))
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) fail(c *gin.Context, err error) {
	var transErr *TransitionError
	var surveyErr *SurveyError
	var imgErr *images.ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "session belongs to another user", nil)
	case errors.Is(err, ErrAnalysisInFlight):
		respond.Error(c, http.StatusConflict, "analysis_in_progress", "Analysis is already running.", nil)
	case errors.Is(err, ErrFinishing):
		respond.Error(c, http.StatusConflict, "analysis_in_progress", "Result is already being saved.", nil)
	case errors.Is(err, ErrNoProfileOffer):
		respond.Error(c, http.StatusConflict, "no_profile_offer", "No saved profile to use.", nil)
	case errors.Is(err, ErrNothingToRetry):
		respond.Error(c, http.StatusConflict, "invalid_transition", "There is no failed analysis to retry.", nil)
	case errors.As(err, &transErr):
		respond.Error(c, http.StatusConflict, "invalid_transition", transErr.Error(), gin.H{"stage": transErr.Stage})
	case errors.As(err, &surveyErr):
		respond.Error(c, http.StatusUnprocessableEntity, "survey_incomplete", "Please answer every question.", surveyErr.Validation.Messages())
	case errors.Is(err, ErrImagesIncomplete):
		respond.Error(c, http.StatusUnprocessableEntity, "images_incomplete", "Please add every required photo.", nil)
	case errors.As(err, &imgErr):
		respond.Error(c, http.StatusUnprocessableEntity, "image_rejected", imgErr.Message, gin.H{"view": imgErr.View, "reason": imgErr.Reason})
	case errors.Is(err, survey.ErrUnknownField):
		respond.Error(c, http.StatusBadRequest, "unknown_field", err.Error(), nil)
	case errors.Is(err, ErrViewNotRequired), errors.Is(err, images.ErrUnknownView):
		respond.Error(c, http.StatusBadRequest, "invalid_view", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
