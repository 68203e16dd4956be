package handler

import (
	"net/http"

	"agrilink/internal/domain/connection"
	"agrilink/internal/services"
	"agrilink/internal/transport/httpdto"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConnectionHandler struct {
	service *services.ConnectionService
	log     *logger.Logger
}

func NewConnectionHandler(service *services.ConnectionService, log *logger.Logger) *ConnectionHandler {
	return &ConnectionHandler{service: service, log: log}
}

func (h *ConnectionHandler) Request(c *gin.Context) {
	var req httpdto.RequestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	targetID, err := uuid.Parse(req.TargetProfileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid target_profile_id", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	created, err := h.service.RequestConnection(c.Request.Context(), principal, targetID, req.IntroMessage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewConnectionView(created)))
}

func (h *ConnectionHandler) Respond(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid connection id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.RespondConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	updated, err := h.service.RespondToConnection(c.Request.Context(), principal, connectionID, connection.Status(req.Decision))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConnectionView(updated)))
}

func (h *ConnectionHandler) Resign(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid connection id", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.service.ResignConnection(c.Request.Context(), principal, connectionID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ConnectionHandler) List(c *gin.Context) {
	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var status *connection.Status
	if raw := c.Query("status"); raw != "" {
		s := connection.Status(raw)
		status = &s
	}

	list, err := h.service.ListConnections(c.Request.Context(), principal, status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"connections": httpdto.NewConnectionViews(list)}))
}

func (h *ConnectionHandler) ListIncoming(c *gin.Context) {
	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	list, err := h.service.ListIncomingRequests(c.Request.Context(), principal)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"requests": httpdto.NewConnectionViews(list)}))
}
