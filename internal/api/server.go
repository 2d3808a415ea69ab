package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/pkg/utils"
)

const defaultListLimit = 50

// Store — операции хранилища, нужные HTTP слою
type Store interface {
	SaveAlert(alert *domain.Alert) error
	GetRecentAlerts(userID int64, limit int) ([]domain.Alert, error)
	GetRecentOrders(userID int64, limit int) ([]domain.Order, error)
	GetAllActivePositions(userID int64) ([]domain.Position, error)
	GetRecentTrades(userID int64, limit int) ([]domain.Trade, error)
	SaveStrategy(strategy *domain.Strategy) error
	GetAllStrategies(userID int64) ([]domain.Strategy, error)
	SetStrategyActive(id int64, active bool) error
}

// AlertProcessor обрабатывает принятый сигнал
type AlertProcessor interface {
	ProcessAlert(ctx context.Context, userID, alertID int64, payload domain.AlertPayload) error
}

// Server — HTTP интерфейс: прием webhook сигналов и чтение состояния
type Server struct {
	store     Store
	processor AlertProcessor
	logger    *utils.Logger
	srv       *http.Server
}

// Response — единый конверт ответа
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewServer создает HTTP сервер
func NewServer(port string, store Store, processor AlertProcessor, logger *utils.Logger) *Server {
	s := &Server{
		store:     store,
		processor: processor,
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/webhook/{userID:[0-9]+}", s.handleWebhook).Methods("POST")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/alerts", s.handleListAlerts).Methods("GET")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/positions", s.handleListPositions).Methods("GET")
	api.HandleFunc("/trades", s.handleListTrades).Methods("GET")
	api.HandleFunc("/strategies", s.handleListStrategies).Methods("GET")
	api.HandleFunc("/strategies", s.handleCreateStrategy).Methods("POST")
	api.HandleFunc("/strategies/{id:[0-9]+}/active", s.handleSetStrategyActive).Methods("PUT")

	s.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start запускает сервер, блокирует до остановки
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler отдает корневой handler, для тестов
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// handleWebhook принимает сигнал, сохраняет его и отвечает 202 сразу.
// Обработка идет в фоне: webhook источник не должен ждать брокера.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload domain.AlertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.Symbol == "" || payload.Action == "" {
		s.writeError(w, http.StatusBadRequest, "symbol and action are required")
		return
	}

	raw, _ := json.Marshal(payload)
	alert := &domain.Alert{
		UserID:     userID,
		Symbol:     payload.Symbol,
		Action:     payload.Action,
		Price:      payload.Price,
		Quantity:   payload.Quantity,
		RawPayload: string(raw),
		Status:     domain.AlertStatusPending,
	}
	if err := s.store.SaveAlert(alert); err != nil {
		s.logger.Error("Failed to save alert: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save alert")
		return
	}

	requestID := uuid.NewString()
	s.logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"alert_id":   alert.ID,
		"user_id":    userID,
		"symbol":     payload.Symbol,
		"action":     payload.Action,
	}).Info("Alert accepted")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := s.processor.ProcessAlert(ctx, userID, alert.ID, payload); err != nil {
			s.logger.Error("Alert %d processing failed (request %s): %v", alert.ID, requestID, err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, Response{
		Success: true,
		Data:    map[string]interface{}{"alert_id": alert.ID, "request_id": requestID},
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	userID, limit, err := listParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.store.GetRecentAlerts(userID, limit)
	if err != nil {
		s.logger.Error("Failed to list alerts: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: alerts})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, limit, err := listParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := s.store.GetRecentOrders(userID, limit)
	if err != nil {
		s.logger.Error("Failed to list orders: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: orders})
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	userID, _, err := listParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := s.store.GetAllActivePositions(userID)
	if err != nil {
		s.logger.Error("Failed to list positions: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: positions})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	userID, limit, err := listParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.store.GetRecentTrades(userID, limit)
	if err != nil {
		s.logger.Error("Failed to list trades: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: trades})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	userID, _, err := listParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategies, err := s.store.GetAllStrategies(userID)
	if err != nil {
		s.logger.Error("Failed to list strategies: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list strategies")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: strategies})
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy domain.Strategy
	if err := json.NewDecoder(r.Body).Decode(&strategy); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strategy.UserID == 0 || strategy.Name == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	if err := s.store.SaveStrategy(&strategy); err != nil {
		s.logger.Error("Failed to save strategy: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save strategy")
		return
	}
	s.writeJSON(w, http.StatusCreated, Response{Success: true, Data: strategy})
}

func (s *Server) handleSetStrategyActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid strategy id")
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := s.store.SetStrategyActive(id, body.Active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		s.logger.Error("Failed to update strategy %d: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "failed to update strategy")
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"status": "ok"}})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, Response{Success: false, Error: msg})
}

func listParams(r *http.Request) (int64, int, error) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, errors.New("user_id query parameter is required")
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			return 0, 0, errors.New("limit must be between 1 and 500")
		}
	}
	return userID, limit, nil
}
