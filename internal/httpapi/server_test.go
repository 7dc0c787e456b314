package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itirp/gateway/internal/auth"
	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/eventstore"
	"github.com/itirp/gateway/internal/execution"
	"github.com/itirp/gateway/internal/risk"
)

type testHarness struct {
	router http.Handler
	exec   *execution.Engine
}

func newTestHarness(t *testing.T, limits domain.RiskLimitsConfig) *testHarness {
	t.Helper()

	store := eventstore.New()
	riskEngine := risk.New(limits, store)

	cfg := execution.DefaultConfig()
	cfg.WorkerCount = 1
	execEngine := execution.New(riskEngine, store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	execEngine.Start(ctx)

	users, err := auth.NewDirectory()
	require.NoError(t, err)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	server := NewServer(zerolog.Nop(), users, tokens, riskEngine, execEngine, store)

	return &testHarness{router: server.Router(), exec: execEngine}
}

func defaultTestLimits() domain.RiskLimitsConfig {
	return domain.RiskLimitsConfig{
		MaxPositionSize:  decimal.NewFromInt(100000),
		MaxDailyVolume:   decimal.NewFromInt(1000000),
		MaxNetExposure:   decimal.NewFromInt(500000),
		MaxGrossExposure: decimal.NewFromInt(1000000),
	}
}

func (h *testHarness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestLogin_ValidCredentialsIssueToken(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	token := h.login(t, "trader1", "trader123")
	assert.NotEmpty(t, token)
}

func TestLogin_InvalidCredentialsReturn401(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "trader1",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitOrder_HappyPathReturnsApproved(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	token := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"symbol": "aapl", "side": "BUY", "quantity": "10", "price": "100",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "APPROVED", resp.Status)
	assert.NotEmpty(t, resp.OrderID)
}

func TestSubmitOrder_PositionLimitRejection(t *testing.T) {
	limits := defaultTestLimits()
	limits.MaxPositionSize = decimal.NewFromInt(50)
	h := newTestHarness(t, limits)
	token := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"symbol": "AAPL", "side": "BUY", "quantity": "10", "price": "100",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "REJECTED", resp.Status)
	assert.Contains(t, resp.Message, "POSITION_LIMIT")
}

func TestSubmitOrder_DuplicateReturns409(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	token := h.login(t, "trader1", "trader123")

	body := map[string]interface{}{
		"symbol": "AAPL", "side": "BUY", "quantity": "10", "price": "100",
		"client_order_id": "dup-1",
	}

	first := h.do(t, http.MethodPost, "/api/v1/orders", token, body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := h.do(t, http.MethodPost, "/api/v1/orders", token, body)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestRiskLimits_RequiresRiskManagerRole(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	traderToken := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodGet, "/api/v1/risk/limits", traderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	riskToken := h.login(t, "risk1", "risk123")
	rec = h.do(t, http.MethodGet, "/api/v1/risk/limits", riskToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKillSwitch_ActivationBlocksSubsequentOrders(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	riskToken := h.login(t, "risk1", "risk123")
	traderToken := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodPost, "/api/v1/risk/kill-switch?enabled=true", riskToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/orders", traderToken, map[string]interface{}{
		"symbol": "AAPL", "side": "BUY", "quantity": "10", "price": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "REJECTED", resp.Status)
	assert.Contains(t, resp.Message, "Kill switch")
}

func TestAuditEvents_RequiresComplianceRole(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	traderToken := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodGet, "/api/v1/audit/events", traderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditOrderTrail_ReconstructsSubmittedOrder(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	traderToken := h.login(t, "trader1", "trader123")
	adminToken := h.login(t, "admin", "admin123")

	submit := h.do(t, http.MethodPost, "/api/v1/orders", traderToken, map[string]interface{}{
		"symbol": "AAPL", "side": "BUY", "quantity": "10", "price": "100",
	})
	require.Equal(t, http.StatusCreated, submit.Code)

	var submitResp orderResponse
	require.NoError(t, json.Unmarshal(submit.Body.Bytes(), &submitResp))

	rec := h.do(t, http.MethodGet, "/api/v1/audit/order/"+submitResp.OrderID+"/trail", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var trail struct {
		OrderID     string `json:"order_id"`
		Events      []struct {
			EventType string `json:"event_type"`
		} `json:"events"`
		TotalEvents int `json:"total_events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	assert.GreaterOrEqual(t, trail.TotalEvents, 3)
	assert.Equal(t, "ORDER_CREATED", trail.Events[0].EventType)
}

func TestAuditOrderTrail_UnknownOrderReturns404(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	adminToken := h.login(t, "admin", "admin123")

	rec := h.do(t, http.MethodGet, "/api/v1/audit/order/does-not-exist/trail", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_UnknownIDReturns404(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	token := h.login(t, "trader1", "trader123")

	rec := h.do(t, http.MethodGet, "/api/v1/orders/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h := newTestHarness(t, defaultTestLimits())
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
