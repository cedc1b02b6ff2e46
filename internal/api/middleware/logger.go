package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger middleware для логирования HTTP запросов
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":    method,
			"path":      path,
			"status":    statusCode,
			"duration":  time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})

		if userID, err := GetUserID(c); err == nil {
			entry = entry.WithField("user_id", userID)
		}
		if username, err := GetUsername(c); err == nil && username != "" {
			entry = entry.WithField("username", username)
		}

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case statusCode >= 500:
			entry.Error("Internal server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}
