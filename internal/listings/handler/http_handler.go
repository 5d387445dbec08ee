package handler

import (
	"errors"
	"net/http"

	"github.com/sngor/bayon-backend/internal/listings/service"
	"github.com/sngor/bayon-backend/internal/listings/transport"
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
}

func NewHTTPHandler(svc *service.Service, val *validator.Validator, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, val: val, log: log}
}

// RegisterRoutes wires the authenticated agent-facing endpoints.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/connections", h.CreateConnection)
	rg.GET("/connections", h.ListConnections)
	rg.POST("/listings", h.CreateListing)
	rg.GET("/listings", h.ListListings)
	rg.POST("/listings/:id/posts", h.RegisterPost)
	rg.GET("/listings/:id/posts", h.ListPosts)
	rg.POST("/sync-mls-status", h.SyncNow)
}

// RegisterCronRoutes wires the shared-secret trigger for the full sweep.
func (h *HTTPHandler) RegisterCronRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync-mls-status", h.SyncEverything)
}

func (h *HTTPHandler) CreateConnection(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.CreateConnection(c.Request.Context(), identity.UserID(), req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *HTTPHandler) ListConnections(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListConnections(c.Request.Context(), identity.UserID())
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *HTTPHandler) CreateListing(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.CreateListing(c.Request.Context(), identity.UserID(), req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *HTTPHandler) ListListings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListListings(c.Request.Context(), identity.UserID())
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *HTTPHandler) RegisterPost(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req transport.RegisterPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.RegisterPost(c.Request.Context(), identity.UserID(), id, req)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *HTTPHandler) ListPosts(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	items, err := h.svc.ListPosts(c.Request.Context(), identity.UserID(), id)
	if h.handleServiceError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// SyncNow runs the caller's own reconciliation synchronously.
func (h *HTTPHandler) SyncNow(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	summary, err := h.svc.SyncAllConnections(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "mls sync failed", err.Error())
		return
	}
	httpkit.OK(c, summary)
}

// SyncEverything runs the cross-user sweep for the cron trigger.
func (h *HTTPHandler) SyncEverything(c *gin.Context) {
	summary, err := h.svc.SyncEverything(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "mls sync failed", err.Error())
		return
	}
	httpkit.OK(c, summary)
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

	h.log.Error("listings request failed", "error", err, "path", c.FullPath())
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
