package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barizhka/magnate-otc/internal/api/middleware"
	"github.com/Barizhka/magnate-otc/internal/config"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/service"
	"github.com/Barizhka/magnate-otc/internal/storages"
	"github.com/Barizhka/magnate-otc/internal/storages/sqlstore"
)

type testServer struct {
	router  *gin.Engine
	service *service.OTCService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Discard()
	storage, err := sqlstore.New(&sqlstore.Config{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "otc.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	jwtMiddleware := middleware.NewJWTMiddleware("router-test-secret", 24*time.Hour, log)
	otcService := service.NewOTCService(storage, jwtMiddleware, nil, log)

	user := &storages.User{
		UserID:          123456789,
		Username:        "test_user",
		CardDetails:     "5536913996855484",
		Balance:         decimal.NewFromInt(1000),
		SuccessfulDeals: 5,
		Lang:            "ru",
		IsAdmin:         true,
		WebLogin:        "testuser",
	}
	require.NoError(t, otcService.ProvisionUser(context.Background(), user, "testpass123"))

	return &testServer{
		router:  SetupRouter(otcService, jwtMiddleware, log, gin.TestMode, []string{"*"}),
		service: otcService,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/login", "", gin.H{"login": "testuser", "password": "testpass123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Magnate OTC API is running","status":"active"}`, w.Body.String())

	w = srv.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("success returns token and public profile", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/login", "", gin.H{"login": "testuser", "password": "testpass123"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp, "token")

		var user map[string]interface{}
		require.NoError(t, json.Unmarshal(resp["user"], &user))
		assert.Equal(t, float64(123456789), user["user_id"])
		assert.Equal(t, float64(1000), user["balance"])
		assert.Equal(t, true, user["is_admin"])
		assert.NotContains(t, user, "web_password_hash")
		assert.NotContains(t, user, "web_password")
	})

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"wrong password", gin.H{"login": "testuser", "password": "nope"}, http.StatusUnauthorized},
		{"unknown login", gin.H{"login": "ghost", "password": "testpass123"}, http.StatusUnauthorized},
		{"missing password", gin.H{"login": "testuser"}, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodPost, "/api/login", "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}

	// Ответ не зависит от того, существует ли логин
	wrongPassword := srv.do(t, http.MethodPost, "/api/login", "", gin.H{"login": "testuser", "password": "nope"})
	unknownLogin := srv.do(t, http.MethodPost, "/api/login", "", gin.H{"login": "ghost", "password": "nope"})
	assert.Equal(t, wrongPassword.Body.String(), unknownLogin.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/deals"},
		{http.MethodGet, "/api/deals/my"},
		{http.MethodPost, "/api/tickets"},
		{http.MethodGet, "/api/tickets/my"},
		{http.MethodGet, "/api/profile"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := srv.do(t, route.method, route.path, "", gin.H{"amount": 1, "description": "x", "payment_method": "ton"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Authorization header is required")

			w = srv.do(t, route.method, route.path, "forged.token.value", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestDealLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	w := srv.do(t, http.MethodPost, "/api/deals", token, gin.H{
		"amount":         100,
		"description":    "sell BTC",
		"payment_method": "ton",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	dealID, _ := created["deal_id"].(string)
	assert.True(t, strings.HasPrefix(dealID, "web_"))
	assert.True(t, strings.HasSuffix(dealID, "_123456789"))
	assert.Equal(t, float64(100), created["amount"])
	assert.Equal(t, "active", created["status"])
	assert.Equal(t, "web", created["source"])
	assert.Nil(t, created["buyer_id"])
	assert.Equal(t, float64(123456789), created["seller_id"])

	w = srv.do(t, http.MethodGet, "/api/deals/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var deals []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deals))
	require.Len(t, deals, 1)
	assert.Equal(t, dealID, deals[0]["deal_id"])
	assert.Equal(t, float64(100), deals[0]["amount"])
	assert.Equal(t, "sell BTC", deals[0]["description"])
	assert.Equal(t, "ton", deals[0]["payment_method"])
}

func TestCreateDealValidation(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"zero amount", gin.H{"amount": 0, "description": "sell", "payment_method": "ton"}, "amount"},
		{"negative amount", gin.H{"amount": -10, "description": "sell", "payment_method": "ton"}, "amount"},
		{"missing description", gin.H{"amount": 10, "payment_method": "ton"}, "description"},
		{"unknown method", gin.H{"amount": 10, "description": "sell", "payment_method": "paypal"}, "payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodPost, "/api/deals", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.field, resp["field"])
		})
	}

	w := srv.do(t, http.MethodPost, "/api/deals", token, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/deals/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTicketsAndProfile(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	w := srv.do(t, http.MethodGet, "/api/tickets/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/tickets", token, gin.H{"subject": "Payment", "message": "Where is my money?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ticket storages.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, storages.TicketStatusOpen, ticket.Status)

	w = srv.do(t, http.MethodPost, "/api/tickets", token, gin.H{"subject": "", "message": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/tickets/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tickets []storages.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, ticket.TicketID, tickets[0].TicketID)

	w = srv.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile storages.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, int64(123456789), profile.UserID)
	assert.Equal(t, "5536913996855484", profile.CardDetails)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
