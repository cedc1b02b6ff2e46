package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/service"
)

// ProfileHandler обработчик профиля пользователя
type ProfileHandler struct {
	service *service.OTCService
	logger  *logrus.Logger
}

// NewProfileHandler создает новый обработчик профиля
func NewProfileHandler(service *service.OTCService, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger,
	}
}

// GetProfile возвращает профиль пользователя
// @Summary Get profile
// @Description Public profile of the authenticated user
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} storages.Profile
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}
