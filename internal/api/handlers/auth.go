package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/service"
)

// AuthHandler обработчик для аутентификации
type AuthHandler struct {
	service *service.OTCService
	logger  *logrus.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(service *service.OTCService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// LoginRequest запрос на авторизацию
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login авторизует пользователя
// @Summary Login user
// @Description Authenticate by web login and password, returns JWT token and profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, result)
}
