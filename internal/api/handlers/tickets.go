package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/service"
)

// TicketHandler обработчик для обращений в поддержку
type TicketHandler struct {
	service *service.OTCService
	logger  *logrus.Logger
}

// NewTicketHandler создает новый обработчик тикетов
func NewTicketHandler(service *service.OTCService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		logger:  logger,
	}
}

// CreateTicketRequest запрос на создание тикета
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateTicket создает обращение в поддержку
// @Summary Create ticket
// @Tags tickets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateTicketRequest true "Ticket data"
// @Success 200 {object} storages.Ticket
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ticket, err := h.service.CreateTicket(c.Request.Context(), userID, req.Subject, req.Message)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ListMyTickets возвращает обращения пользователя
// @Summary List my tickets
// @Tags tickets
// @Security BearerAuth
// @Produce json
// @Success 200 {array} storages.Ticket
// @Failure 401 {object} map[string]string
// @Router /api/tickets/my [get]
func (h *TicketHandler) ListMyTickets(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	tickets, err := h.service.ListMyTickets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get tickets")
		return
	}

	c.JSON(http.StatusOK, tickets)
}
