package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// GetProfile возвращает публичный профиль авторизованного пользователя
func (s *OTCService) GetProfile(ctx context.Context, userID int64) (*storages.Profile, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if errors.Is(err, storages.ErrNotFound) {
		// Токен валиден, а строки нет: пользователь удален после выдачи токена
		s.logger.Errorf("Consistency fault: token subject %d has no user row", userID)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return user.Profile(), nil
}
