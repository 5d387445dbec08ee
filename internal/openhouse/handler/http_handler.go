package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/sngor/bayon-backend/internal/openhouse/service"
	"github.com/sngor/bayon-backend/internal/openhouse/transport"
	"github.com/sngor/bayon-backend/platform/apperr"
	"github.com/sngor/bayon-backend/platform/httpkit"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HTTPHandler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger

	// fallbackURL is where click tracking redirects when the target
	// parameter is missing or unusable.
	fallbackURL string
}

func NewHTTPHandler(svc *service.Service, val *validator.Validator, fallbackURL string, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, val: val, log: log, fallbackURL: fallbackURL}
}

// RegisterRoutes wires the authenticated agent-facing endpoints.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)
	rg.GET("/sessions", h.ListSessions)
	rg.GET("/sessions/:id", h.GetSession)
	rg.DELETE("/sessions/:id", h.ArchiveSession)
	rg.PUT("/sessions/:id/sequence", h.UpsertSequence)
	rg.GET("/sessions/:id/visitors", h.ListVisitors)
	rg.GET("/sessions/:id/qr", h.SessionQR)
	rg.GET("/visitors/:id/touchpoints", h.ListTouchpoints)
}

// RegisterPublicRoutes wires the anonymous visitor-facing endpoints.
// Only check-in takes the strict limiter: tracking must always answer,
// and a throttled pixel shows up as a broken image in an inbox.
func (h *HTTPHandler) RegisterPublicRoutes(rg *gin.RouterGroup, checkinLimit ...gin.HandlerFunc) {
	checkin := append(append([]gin.HandlerFunc{}, checkinLimit...), h.CheckIn)
	rg.POST("/checkin/:token", checkin...)
	rg.GET("/track/open", h.TrackOpen)
	rg.GET("/track/click", h.TrackClick)
}

// RegisterCronRoutes wires the batch trigger endpoints. POST requires
// the shared-secret bearer; GET is an unauthenticated liveness probe,
// registered by the module outside this group.
func (h *HTTPHandler) RegisterCronRoutes(rg *gin.RouterGroup) {
	rg.POST("/process-touchpoints", h.ProcessTouchpoints)
}

func (h *HTTPHandler) CreateSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), identity.UserID(), req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *HTTPHandler) ListSessions(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListSessions(c.Request.Context(), identity.UserID())
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *HTTPHandler) GetSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetSession(c.Request.Context(), identity.UserID(), id)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *HTTPHandler) ArchiveSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if h.handleServiceError(c, h.svc.ArchiveSession(c.Request.Context(), identity.UserID(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) UpsertSequence(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req transport.UpsertSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.UpsertSequence(c.Request.Context(), identity.UserID(), id, req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *HTTPHandler) ListVisitors(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	items, err := h.svc.ListVisitors(c.Request.Context(), identity.UserID(), id)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *HTTPHandler) SessionQR(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	url, err := h.svc.SessionQRDownloadURL(c.Request.Context(), identity.UserID(), id)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"downloadUrl": url})
}

func (h *HTTPHandler) ListTouchpoints(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	items, err := h.svc.ListTouchpoints(c.Request.Context(), identity.UserID(), id)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *HTTPHandler) CheckIn(c *gin.Context) {
	var req transport.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.CheckIn(c.Request.Context(), c.Param("token"), req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// ProcessTouchpoints runs one batch synchronously and reports its summary.
func (h *HTTPHandler) ProcessTouchpoints(c *gin.Context) {
	summary, err := h.svc.ProcessAllPending(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "touchpoint batch failed", err.Error())
		return
	}
	httpkit.OK(c, summary)
}

// ProcessTouchpointsLiveness answers the unauthenticated GET probe used
// by cron health checks.
func (h *HTTPHandler) ProcessTouchpointsLiveness(c *gin.Context) {
	httpkit.OK(c, gin.H{"status": "ok"})
}

// trackingPixel is a transparent 1x1 GIF.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackOpen records an email open and always serves the pixel, whatever
// happens: a broken tracking link must never render a broken image in
// someone's inbox.
func (h *HTTPHandler) TrackOpen(c *gin.Context) {
	sessionID, sErr := uuid.Parse(c.Query("sessionId"))
	visitorID, vErr := uuid.Parse(c.Query("visitorId"))
	if sErr == nil && vErr == nil {
		h.svc.RecordOpen(c.Request.Context(), sessionID, visitorID)
	} else {
		h.log.Warn("open tracking with bad identifiers",
			"session_id", c.Query("sessionId"), "visitor_id", c.Query("visitorId"))
	}

	c.Header("Cache-Control", "no-store, max-age=0")
	c.Data(http.StatusOK, "image/gif", trackingPixel)
}

// TrackClick records a link click and redirects to the target. The
// redirect happens even when recording fails or the parameters are
// garbage; the visitor is mid-click and must land somewhere.
func (h *HTTPHandler) TrackClick(c *gin.Context) {
	sessionID, sErr := uuid.Parse(c.Query("sessionId"))
	visitorID, vErr := uuid.Parse(c.Query("visitorId"))
	if sErr == nil && vErr == nil {
		h.svc.RecordClick(c.Request.Context(), sessionID, visitorID)
	} else {
		h.log.Warn("click tracking with bad identifiers",
			"session_id", c.Query("sessionId"), "visitor_id", c.Query("visitorId"))
	}

	target := c.Query("url")
	if !safeRedirectTarget(target) {
		target = h.fallbackURL
	}
	c.Redirect(http.StatusFound, target)
}

// safeRedirectTarget rejects targets that would turn the tracker into
// an open redirect primitive (javascript:, data:, protocol-relative).
func safeRedirectTarget(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// handleServiceError maps typed domain errors to their status code and
// treats everything else as an internal failure worth logging.
func (h *HTTPHandler) handleServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return httpkit.HandleError(c, domainErr)
	}

	h.log.Error("open house request failed", "error", err, "path", c.FullPath())
	httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
	return true
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
