package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"golang.org/x/crypto/bcrypt"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// dummyHash сравнивается при неизвестном логине, чтобы время ответа не выдавало существование пользователя
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("magnate-otc-placeholder"), bcrypt.DefaultCost)

// LoginResult результат успешной авторизации
type LoginResult struct {
	Token string            `json:"token"`
	User  *storages.Profile `json:"user"`
}

// Login проверяет учетные данные веб-интерфейса и выпускает токен
func (s *OTCService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	if login == "" {
		return nil, invalidField("login", "login is required")
	}
	if password == "" {
		return nil, invalidField("password", "password is required")
	}

	user, err := s.storage.GetUserByWebLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, storages.ErrNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.logger.Warnf("Failed authentication attempt for login: %s", login)
		return nil, ErrInvalidCredentials
	}

	if user.WebPasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.logger.Warnf("Web access is not configured for user %d", user.UserID)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.WebPasswordHash), []byte(password)); err != nil {
		s.logger.Warnf("Failed authentication attempt for login: %s", login)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.UserID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Infof("User authenticated successfully: %s (ID: %d)", login, user.UserID)
	return &LoginResult{Token: token, User: user.Profile()}, nil
}

// ProvisionUser создает или обновляет пользователя с доступом в веб-интерфейс.
// Пароль сохраняется только в виде bcrypt хеша.
func (s *OTCService) ProvisionUser(ctx context.Context, user *storages.User, password string) error {
	if user.UserID <= 0 {
		return invalidField("user_id", "user_id must be positive")
	}

	user.WebLogin = strings.TrimSpace(user.WebLogin)
	if user.WebLogin == "" {
		return invalidField("web_login", "web_login is required")
	}
	if len(password) < 6 {
		return invalidField("web_password", "web_password must be at least 6 characters")
	}
	if user.Balance.IsNegative() {
		return invalidField("balance", "balance must not be negative")
	}
	if msg := checkMoney(user.Balance); msg != "" {
		return invalidField("balance", "balance "+msg)
	}
	user.TonWallet = strings.TrimSpace(user.TonWallet)
	if user.TonWallet != "" {
		if _, err := address.ParseAddr(user.TonWallet); err != nil {
			return invalidField("ton_wallet", "ton_wallet is not a valid TON address")
		}
	}
	if user.Lang == "" {
		user.Lang = "ru"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Errorf("Failed to hash password: %v", err)
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.WebPasswordHash = string(hashedPassword)

	if err := s.storage.UpsertUser(ctx, user); err != nil {
		if errors.Is(err, storages.ErrAlreadyExists) {
			return invalidField("web_login", "web_login is already taken")
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Infof("User provisioned: %s (ID: %d)", user.WebLogin, user.UserID)
	return nil
}
