package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenKey ключ, под которым токен хранится в файле
const TokenKey = "magante_token"

// TokenStore хранит токен сессии в JSON файле между запусками клиента
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore создает хранилище токена в файле path
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenPath путь к файлу токена в каталоге настроек пользователя
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "magnate_token.json"
	}
	return filepath.Join(dir, "magnate-otc", "token.json")
}

// Load возвращает сохраненный токен или пустую строку, если его нет
func (s *TokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[TokenKey], nil
}

// Save сохраняет токен
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		// Испорченный файл перезаписывается
		values = map[string]string{}
	}
	values[TokenKey] = token
	return s.write(values)
}

// Clear удаляет токен
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		values = map[string]string{}
	}
	if _, ok := values[TokenKey]; !ok && err == nil {
		return nil
	}
	delete(values, TokenKey)
	return s.write(values)
}

func (s *TokenStore) read() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return values, nil
}

func (s *TokenStore) write(values map[string]string) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token dir: %w", err)
		}
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
