package client

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

var (
	// ErrBusy предыдущее действие еще выполняется
	ErrBusy = errors.New("another action is in progress")
	// ErrNotAuthenticated действие требует входа
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAdmin действие доступно только администратору
	ErrNotAdmin = errors.New("admin access required")
	// ErrInvalidInput ввод отклонен до обращения к серверу
	ErrInvalidInput = errors.New("invalid input")
)

// Notifier показывает пользователю результат действия
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Session состояние клиента: текущий пользователь, токен и загруженные данные
type Session struct {
	api      *APIClient
	tokens   *TokenStore
	health   *HealthProbe
	notifier Notifier
	logger   *logrus.Logger

	mu      sync.Mutex
	busy    bool
	token   string
	user    *storages.Profile
	deals   []storages.Deal
	tickets []storages.Ticket
}

// NewSession создает пустую сессию
func NewSession(api *APIClient, tokens *TokenStore, health *HealthProbe, notifier Notifier, logger *logrus.Logger) *Session {
	return &Session{
		api:      api,
		tokens:   tokens,
		health:   health,
		notifier: notifier,
		logger:   logger,
	}
}

// Restore восстанавливает сессию по сохраненному токену. Невалидный токен удаляется.
func (s *Session) Restore(ctx context.Context) bool {
	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warnf("Failed to load saved token: %v", err)
		s.discardToken()
		return false
	}
	if token == "" {
		return false
	}

	if err := s.begin(); err != nil {
		return false
	}
	defer s.end()

	profile, err := s.api.GetProfile(ctx, token)
	if err != nil {
		s.logger.Infof("Saved session is no longer valid: %v", err)
		s.discardToken()
		return false
	}

	s.setAuth(token, profile)
	s.loadDashboard(ctx)
	return true
}

// Login выполняет вход и загружает данные кабинета
func (s *Session) Login(ctx context.Context, login, password string) error {
	if strings.TrimSpace(login) == "" || password == "" {
		s.notifier.Error("Введите логин и пароль")
		return ErrInvalidInput
	}

	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	result, err := s.api.Login(ctx, strings.TrimSpace(login), password)
	if err != nil {
		s.notifier.Error(errorMessage(err, "Ошибка входа"))
		return err
	}

	s.setAuth(result.Token, result.User)
	if err := s.tokens.Save(result.Token); err != nil {
		s.logger.Errorf("Failed to persist token: %v", err)
	}

	s.notifier.Success("Успешный вход")
	s.loadDashboard(ctx)
	return nil
}

// CreateDeal создает сделку и перечитывает список сделок
func (s *Session) CreateDeal(ctx context.Context, amount decimal.Decimal, description string, method storages.PaymentMethod) (*storages.Deal, error) {
	token, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		s.notifier.Error("Сумма должна быть больше 0")
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(description) == "" {
		s.notifier.Error("Введите описание сделки")
		return nil, ErrInvalidInput
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	deal, err := s.api.CreateDeal(ctx, token, amount, description, method)
	if err != nil {
		s.fail(err, "Ошибка создания сделки")
		return nil, err
	}

	s.notifier.Success("Сделка создана успешно!")
	if err := s.loadDeals(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки сделок")
	}
	return deal, nil
}

// CreateTicket создает обращение и перечитывает список тикетов
func (s *Session) CreateTicket(ctx context.Context, subject, message string) (*storages.Ticket, error) {
	token, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(subject) == "" || strings.TrimSpace(message) == "" {
		s.notifier.Error("Заполните все поля")
		return nil, ErrInvalidInput
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	ticket, err := s.api.CreateTicket(ctx, token, subject, message)
	if err != nil {
		s.fail(err, "Ошибка создания тикета")
		return nil, err
	}

	s.notifier.Success("Тикет создан успешно!")
	if err := s.loadTickets(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки тикетов")
	}
	return ticket, nil
}

// LoadDeals перечитывает сделки пользователя
func (s *Session) LoadDeals(ctx context.Context) ([]storages.Deal, error) {
	token, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.loadDeals(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки сделок")
		return nil, err
	}
	return s.Deals(), nil
}

// LoadTickets перечитывает тикеты пользователя
func (s *Session) LoadTickets(ctx context.Context) ([]storages.Ticket, error) {
	token, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.loadTickets(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки тикетов")
		return nil, err
	}
	return s.Tickets(), nil
}

// LoadProfile перечитывает профиль пользователя
func (s *Session) LoadProfile(ctx context.Context) (*storages.Profile, error) {
	token, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	profile, err := s.api.GetProfile(ctx, token)
	if err != nil {
		s.fail(err, "Ошибка загрузки профиля")
		return nil, err
	}

	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()
	return profile, nil
}

// Logout завершает сессию без обращения к серверу
func (s *Session) Logout() {
	s.discardToken()
	s.notifier.Info("Вы вышли из системы")
}

// AdminAction разделы администратора пока не реализованы
func (s *Session) AdminAction(name string) error {
	user := s.User()
	if user == nil || !user.IsAdmin {
		return ErrNotAdmin
	}

	s.logger.Debugf("Admin action requested: %s", name)
	s.notifier.Info("Функция в разработке")
	return nil
}

// APIOnline сообщает о доступности сервера
func (s *Session) APIOnline(ctx context.Context) bool {
	return s.health.Online(ctx)
}

// Authenticated сообщает, выполнен ли вход
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// User текущий пользователь или nil
func (s *Session) User() *storages.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Deals последние загруженные сделки
func (s *Session) Deals() []storages.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storages.Deal(nil), s.deals...)
}

// Tickets последние загруженные тикеты
func (s *Session) Tickets() []storages.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storages.Ticket(nil), s.tickets...)
}

// Busy сообщает, выполняется ли действие
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *Session) requireAuth() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

func (s *Session) setAuth(token string, user *storages.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// discardToken очищает состояние сессии в памяти и на диске
func (s *Session) discardToken() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.deals = nil
	s.tickets = nil
	s.mu.Unlock()

	if err := s.tokens.Clear(); err != nil {
		s.logger.Errorf("Failed to clear saved token: %v", err)
	}
}

// fail уведомляет об ошибке. Отклоненный сервером токен завершает сессию.
func (s *Session) fail(err error, fallback string) {
	if errors.Is(err, ErrUnauthorized) {
		s.discardToken()
		s.notifier.Error("Сессия истекла, войдите снова")
		return
	}

	var transportErr *url.Error
	if errors.As(err, &transportErr) {
		// Сервер не ответил, следующая проверка статуса идет в сеть
		s.health.Reset()
	}
	s.notifier.Error(errorMessage(err, fallback))
}

// loadDashboard загружает сделки и тикеты после входа
func (s *Session) loadDashboard(ctx context.Context) {
	token, err := s.requireAuth()
	if err != nil {
		return
	}
	if err := s.loadDeals(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки сделок")
		return
	}
	if err := s.loadTickets(ctx, token); err != nil {
		s.fail(err, "Ошибка загрузки тикетов")
	}
}

func (s *Session) loadDeals(ctx context.Context, token string) error {
	deals, err := s.api.ListMyDeals(ctx, token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.deals = deals
	s.mu.Unlock()
	return nil
}

func (s *Session) loadTickets(ctx context.Context, token string) error {
	tickets, err := s.api.ListMyTickets(ctx, token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tickets = tickets
	s.mu.Unlock()
	return nil
}

// errorMessage текст ошибки сервера или запасное сообщение
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
