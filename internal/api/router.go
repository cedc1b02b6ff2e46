package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Barizhka/magnate-otc/internal/api/handlers"
	"github.com/Barizhka/magnate-otc/internal/api/middleware"
	"github.com/Barizhka/magnate-otc/internal/service"
)

// SetupRouter настраивает и возвращает роутер со всеми эндпоинтами
func SetupRouter(
	otcService *service.OTCService,
	jwtMiddleware *middleware.JWTMiddleware,
	logger *logrus.Logger,
	ginMode string,
	allowOrigins []string,
) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(corsMiddleware(allowOrigins))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Magnate OTC API is running",
			"status":  "active",
		})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handlers.NewAuthHandler(otcService, logger)
	dealHandler := handlers.NewDealHandler(otcService, logger)
	ticketHandler := handlers.NewTicketHandler(otcService, logger)
	profileHandler := handlers.NewProfileHandler(otcService, logger)

	apiGroup := router.Group("/api")
	{
		// Public routes (без авторизации)
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
		apiGroup.POST("/login", authHandler.Login)

		// Protected routes (требуют Bearer токен)
		authorized := apiGroup.Group("")
		authorized.Use(jwtMiddleware.Auth())
		{
			authorized.POST("/deals", dealHandler.CreateDeal)
			authorized.GET("/deals/my", dealHandler.ListMyDeals)

			authorized.POST("/tickets", ticketHandler.CreateTicket)
			authorized.GET("/tickets/my", ticketHandler.ListMyTickets)

			authorized.GET("/profile", profileHandler.GetProfile)
		}
	}

	return router
}

// corsMiddleware разрешает запросы веб-клиента с указанных источников
func corsMiddleware(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
	}

	return cors.New(cfg)
}
