package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/pkg/utils"
)

type fakeStore struct {
	alerts     []domain.Alert
	saveErr    error
	strategies []domain.Strategy
}

func (f *fakeStore) SaveAlert(alert *domain.Alert) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	alert.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeStore) GetRecentAlerts(int64, int) ([]domain.Alert, error) { return f.alerts, nil }
func (f *fakeStore) GetRecentOrders(int64, int) ([]domain.Order, error) { return nil, nil }
func (f *fakeStore) GetAllActivePositions(int64) ([]domain.Position, error) { return nil, nil }
func (f *fakeStore) GetRecentTrades(int64, int) ([]domain.Trade, error) { return nil, nil }

func (f *fakeStore) SaveStrategy(strategy *domain.Strategy) error {
	strategy.ID = int64(len(f.strategies) + 1)
	f.strategies = append(f.strategies, *strategy)
	return nil
}

func (f *fakeStore) GetAllStrategies(int64) ([]domain.Strategy, error) { return f.strategies, nil }
func (f *fakeStore) SetStrategyActive(int64, bool) error { return nil }

type fakeProcessor struct {
	mu      sync.Mutex
	userID  int64
	alertID int64
	payload domain.AlertPayload
	called  chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{called: make(chan struct{})}
}

func (f *fakeProcessor) ProcessAlert(ctx context.Context, userID, alertID int64, payload domain.AlertPayload) error {
	f.mu.Lock()
	f.userID = userID
	f.alertID = alertID
	f.payload = payload
	f.mu.Unlock()
	close(f.called)
	return nil
}

func newTestServer(store Store, processor AlertProcessor) *Server {
	return NewServer("0", store, processor, utils.NewLogger("error", ""))
}

func TestWebhook_AcceptsAlert(t *testing.T) {
	store := &fakeStore{}
	processor := newFakeProcessor()
	server := newTestServer(store, processor)

	body := `{"symbol":"TCS","action":"BUY","price":3500,"quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/1", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	require.Len(t, store.alerts, 1)
	saved := store.alerts[0]
	assert.Equal(t, int64(1), saved.UserID)
	assert.Equal(t, "TCS", saved.Symbol)
	assert.Equal(t, domain.AlertStatusPending, saved.Status)
	assert.Contains(t, saved.RawPayload, `"symbol":"TCS"`)

	// Обработка уходит в фон, но должна получить тот же alert id
	select {
	case <-processor.called:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}
	processor.mu.Lock()
	defer processor.mu.Unlock()
	assert.Equal(t, int64(1), processor.userID)
	assert.Equal(t, saved.ID, processor.alertID)
	assert.Equal(t, "BUY", processor.payload.Action)
}

func TestWebhook_RejectsBadJSON(t *testing.T) {
	server := newTestServer(&fakeStore{}, newFakeProcessor())

	req := httptest.NewRequest(http.MethodPost, "/webhook/1", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_RequiresSymbolAndAction(t *testing.T) {
	store := &fakeStore{}
	server := newTestServer(store, newFakeProcessor())

	req := httptest.NewRequest(http.MethodPost, "/webhook/1", bytes.NewBufferString(`{"price":3500}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.alerts)
}

func TestWebhook_NonNumericUserIs404(t *testing.T) {
	server := newTestServer(&fakeStore{}, newFakeProcessor())

	// Маршрут требует числовой userID
	req := httptest.NewRequest(http.MethodPost, "/webhook/abc", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAlerts_RequiresUserID(t *testing.T) {
	server := newTestServer(&fakeStore{}, newFakeProcessor())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlerts_ReturnsData(t *testing.T) {
	store := &fakeStore{alerts: []domain.Alert{{ID: 1, UserID: 1, Symbol: "TCS", Status: domain.AlertStatusProcessed}}}
	server := newTestServer(store, newFakeProcessor())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?user_id=1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    []domain.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "TCS", resp.Data[0].Symbol)
}

func TestCreateStrategy(t *testing.T) {
	store := &fakeStore{}
	server := newTestServer(store, newFakeProcessor())

	body := `{"user_id":1,"name":"breakout","config":{"default_quantity":5},"active":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/strategies", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.strategies, 1)
	assert.Equal(t, "breakout", store.strategies[0].Name)
	assert.Equal(t, 5, store.strategies[0].Config.DefaultQuantity)
}

func TestHealth(t *testing.T) {
	server := newTestServer(&fakeStore{}, newFakeProcessor())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
