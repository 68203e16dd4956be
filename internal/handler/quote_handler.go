package handler

import (
	"net/http"

	"agrilink/internal/domain/quote"
	"agrilink/internal/services"
	"agrilink/internal/transport/httpdto"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuoteHandler struct {
	service *services.QuoteService
	log     *logger.Logger
}

func NewQuoteHandler(service *services.QuoteService, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{service: service, log: log}
}

func (h *QuoteHandler) Create(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid connection id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid quantity", "INVALID_REQUEST"))
		return
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid unit_price", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	item, err := h.service.CreateQuote(c.Request.Context(), principal, services.CreateQuoteInput{
		ConnectionID: connectionID,
		ProductName:  req.ProductName,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		Currency:     req.Currency,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(item))
}

func (h *QuoteHandler) Respond(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid quote id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.RespondQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	item, err := h.service.RespondToQuote(c.Request.Context(), principal, quoteID, quote.Status(req.Decision))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(item))
}
