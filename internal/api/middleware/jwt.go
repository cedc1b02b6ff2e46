package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	contextUserID   = "user_id"
	contextUsername = "username"
)

var (
	// ErrUnauthorized заголовок Authorization отсутствует или не в формате Bearer
	ErrUnauthorized = errors.New("authorization header is required")
	// ErrTokenExpired срок действия токена истек
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken неверная подпись или структура токена
	ErrInvalidToken = errors.New("invalid token")
)

// Claims структура JWT claims
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTMiddleware выпускает и проверяет JWT токены
type JWTMiddleware struct {
	secret     []byte
	expiration time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewJWTMiddleware создает новый JWT middleware
func NewJWTMiddleware(secret string, expiration time.Duration, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{
		secret:     []byte(secret),
		expiration: expiration,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock подменяет источник времени для выпуска и проверки токенов
func (m *JWTMiddleware) WithClock(now func() time.Time) *JWTMiddleware {
	m.now = now
	return m
}

// Authenticate разбирает заголовок "Bearer <token>" и проверяет подпись и срок действия
func (m *JWTMiddleware) Authenticate(authHeader string) (*Claims, error) {
	if authHeader == "" {
		return nil, ErrUnauthorized
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}

	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

// Auth middleware для аутентификации
func (m *JWTMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			m.logger.Warnf("Rejected request to %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authErrorMessage(err)})
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextUsername, claims.Username)
		c.Next()
	}
}

// authErrorMessage короткое сообщение для клиента
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Authorization header is required"
	case errors.Is(err, ErrTokenExpired):
		return "Token expired"
	default:
		return "Invalid token"
	}
}

// GenerateToken генерирует JWT токен для пользователя
func (m *JWTMiddleware) GenerateToken(userID int64, username string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		m.logger.Errorf("Failed to sign token: %v", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// GetUserID извлекает user_id из контекста
func GetUserID(c *gin.Context) (int64, error) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return 0, fmt.Errorf("user_id not found in context")
	}

	id, ok := userID.(int64)
	if !ok {
		return 0, fmt.Errorf("invalid user_id type")
	}

	return id, nil
}

// GetUsername извлекает username из контекста
func GetUsername(c *gin.Context) (string, error) {
	username, exists := c.Get(contextUsername)
	if !exists {
		return "", fmt.Errorf("username not found in context")
	}

	name, ok := username.(string)
	if !ok {
		return "", fmt.Errorf("invalid username type")
	}

	return name, nil
}
