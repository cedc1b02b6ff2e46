package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/service"
	"github.com/Barizhka/magnate-otc/internal/storages"
)

// DealHandler обработчик для операций со сделками
type DealHandler struct {
	service *service.OTCService
	logger  *logrus.Logger
}

// NewDealHandler создает новый обработчик сделок
func NewDealHandler(service *service.OTCService, logger *logrus.Logger) *DealHandler {
	return &DealHandler{
		service: service,
		logger:  logger,
	}
}

// CreateDealRequest запрос на создание сделки. Продавец всегда берется из токена.
type CreateDealRequest struct {
	Amount        decimal.Decimal `json:"amount" swaggertype:"number"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method" enums:"ton,sbp,stars"`
}

// CreateDeal создает новую сделку
// @Summary Create deal
// @Description Create a deal owned by the authenticated seller
// @Tags deals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateDealRequest true "Deal data"
// @Success 200 {object} storages.Deal
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/deals [post]
func (h *DealHandler) CreateDeal(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	deal, err := h.service.CreateDeal(
		c.Request.Context(),
		userID,
		req.Amount,
		req.Description,
		storages.PaymentMethod(req.PaymentMethod),
	)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create deal")
		return
	}

	c.JSON(http.StatusOK, deal)
}

// ListMyDeals возвращает сделки пользователя
// @Summary List my deals
// @Description Deals where the caller is seller or buyer, newest first
// @Tags deals
// @Security BearerAuth
// @Produce json
// @Success 200 {array} storages.Deal
// @Failure 401 {object} map[string]string
// @Router /api/deals/my [get]
func (h *DealHandler) ListMyDeals(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	deals, err := h.service.ListMyDeals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get deals")
		return
	}

	c.JSON(http.StatusOK, deals)
}
