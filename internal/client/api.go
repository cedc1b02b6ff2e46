package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

const (
	apiHealth      = "/api/health"
	apiLogin       = "/api/login"
	apiDeals       = "/api/deals"
	apiMyDeals     = "/api/deals/my"
	apiTickets     = "/api/tickets"
	apiMyTickets   = "/api/tickets/my"
	apiProfile     = "/api/profile"
	requestTimeout = 15 * time.Second
)

// ErrUnauthorized сервер отклонил токен или учетные данные
var ErrUnauthorized = errors.New("unauthorized")

// APIError ошибка, которую вернул сервер
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server responded with status %d", e.StatusCode)
}

// Is позволяет проверять 401 через errors.Is(err, ErrUnauthorized)
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// LoginResponse ответ на успешный вход
type LoginResponse struct {
	Token string            `json:"token"`
	User  *storages.Profile `json:"user"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type createDealRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
}

type createTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// APIClient HTTP клиент OTC API
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient создает клиента для сервера по адресу baseURL
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Health проверяет доступность сервера
func (c *APIClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, apiHealth, "", nil, nil)
}

// Login выполняет вход по логину и паролю веб-доступа
func (c *APIClient) Login(ctx context.Context, login, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, apiLogin, "", loginRequest{Login: login, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, errors.New("login response without token or user")
	}
	return &resp, nil
}

// CreateDeal создает сделку от имени владельца токена
func (c *APIClient) CreateDeal(ctx context.Context, token string, amount decimal.Decimal, description string, method storages.PaymentMethod) (*storages.Deal, error) {
	req := createDealRequest{
		Amount:        amount,
		Description:   description,
		PaymentMethod: string(method),
	}

	var deal storages.Deal
	if err := c.do(ctx, http.MethodPost, apiDeals, token, req, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

// ListMyDeals возвращает сделки владельца токена
func (c *APIClient) ListMyDeals(ctx context.Context, token string) ([]storages.Deal, error) {
	deals := make([]storages.Deal, 0)
	if err := c.do(ctx, http.MethodGet, apiMyDeals, token, nil, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// CreateTicket создает обращение в поддержку
func (c *APIClient) CreateTicket(ctx context.Context, token, subject, message string) (*storages.Ticket, error) {
	var ticket storages.Ticket
	if err := c.do(ctx, http.MethodPost, apiTickets, token, createTicketRequest{Subject: subject, Message: message}, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListMyTickets возвращает обращения владельца токена
func (c *APIClient) ListMyTickets(ctx context.Context, token string) ([]storages.Ticket, error) {
	tickets := make([]storages.Ticket, 0)
	if err := c.do(ctx, http.MethodGet, apiMyTickets, token, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetProfile возвращает профиль владельца токена
func (c *APIClient) GetProfile(ctx context.Context, token string) (*storages.Profile, error) {
	var profile storages.Profile
	if err := c.do(ctx, http.MethodGet, apiProfile, token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// do выполняет запрос и декодирует JSON ответ в out
func (c *APIClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
