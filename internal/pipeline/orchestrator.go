package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/udihermony/algo-trader/internal/broker"
	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/internal/monitoring"
	"github.com/udihermony/algo-trader/internal/risk"
	"github.com/udihermony/algo-trader/pkg/utils"
)

// CredentialSource выдает брокерские credentials пользователя
type CredentialSource interface {
	AccessToken(ctx context.Context, userID int64) (string, error)
	AutoExecuteEnabled(userID int64) (bool, error)
}

// Notifier отправляет уведомление оператору
type Notifier interface {
	Notify(text string)
}

// Orchestrator прогоняет сигнал через активные стратегии пользователя:
// гейт допустимости -> построение параметров -> PENDING ордер -> брокер ->
// SUBMITTED. Ошибка одной стратегии не прерывает остальные; финальный
// статус сигнала выставляется ровно один раз за прогон.
//
// Известное ограничение: конкурентные сигналы одного пользователя не
// сериализуются, счетчики риска (число позиций, дневной PnL) могут быть
// прочитаны до коммита соседнего ордера. Контроль конкуренции — только
// уникальный индекс (user_id, symbol) в хранилище.
type Orchestrator struct {
	strategies domain.StrategyRepository
	orders     domain.OrderRepository
	positions  domain.PositionRepository
	trades     domain.TradeRepository
	status     *AlertStatusUpdater
	creds      CredentialSource
	broker     broker.Client
	evaluator  *risk.Evaluator
	profile    risk.Profile
	logger     *utils.Logger
	notifier   Notifier
}

// NewOrchestrator создает orchestrator
func NewOrchestrator(
	strategies domain.StrategyRepository,
	orders domain.OrderRepository,
	positions domain.PositionRepository,
	trades domain.TradeRepository,
	status *AlertStatusUpdater,
	creds CredentialSource,
	brokerClient broker.Client,
	evaluator *risk.Evaluator,
	profile risk.Profile,
	logger *utils.Logger,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		strategies: strategies,
		orders:     orders,
		positions:  positions,
		trades:     trades,
		status:     status,
		creds:      creds,
		broker:     brokerClient,
		evaluator:  evaluator,
		profile:    profile,
		logger:     logger,
		notifier:   notifier,
	}
}

// ProcessAlert обрабатывает один входящий сигнал. Единственная точка входа
// pipeline; все ошибки перехватываются на границе сигнала и превращаются
// в терминальный статус ERROR.
func (o *Orchestrator) ProcessAlert(ctx context.Context, userID, alertID int64, payload domain.AlertPayload) error {
	alert := &domain.Alert{
		ID:       alertID,
		UserID:   userID,
		Symbol:   payload.Symbol,
		Action:   payload.Action,
		Price:    payload.Price,
		Quantity: payload.Quantity,
	}

	if err := validatePayload(payload); err != nil {
		return o.finish(alert, domain.AlertStatusError, err.Error())
	}

	if alert.Action == domain.ActionHold {
		// HOLD не порождает ордеров
		return o.finish(alert, domain.AlertStatusIgnored, "hold signal, nothing to execute")
	}

	autoExecute, err := o.creds.AutoExecuteEnabled(userID)
	if err != nil {
		return o.finish(alert, domain.AlertStatusError, err.Error())
	}
	if !autoExecute {
		o.logger.Info("Auto-execute disabled for user %d, skipping alert %d", userID, alertID)
		return o.finish(alert, domain.AlertStatusIgnored, domain.ErrAutoExecuteDisabled.Error())
	}

	strategies, err := o.strategies.GetActive(userID)
	if err != nil {
		return o.finish(alert, domain.AlertStatusError, fmt.Sprintf("failed to load strategies: %v", err))
	}
	if len(strategies) == 0 {
		return o.finish(alert, domain.AlertStatusIgnored, "no active strategies")
	}

	// Стратегии обрабатываются строго последовательно: счетчики риска
	// внутри одного сигнала должны видеть результат предыдущей стратегии
	submitted := 0
	var execErr error
	for i := range strategies {
		strategy := &strategies[i]
		ok, err := o.processStrategy(ctx, alert, strategy)
		if err != nil {
			o.logger.Error("Strategy %d (%s) failed for alert %d: %v", strategy.ID, strategy.Name, alertID, err)
			if execErr == nil {
				execErr = err
			}
			continue
		}
		if ok {
			submitted++
		}
	}

	switch {
	case execErr != nil:
		if o.notifier != nil {
			o.notifier.Notify(fmt.Sprintf("Alert %d failed: %v", alertID, execErr))
		}
		return o.finish(alert, domain.AlertStatusError, execErr.Error())
	case submitted > 0:
		return o.finish(alert, domain.AlertStatusProcessed, fmt.Sprintf("%d order(s) submitted", submitted))
	default:
		// Все активные стратегии отклонили сигнал. Сигнал потреблен и
		// осознанно ничего не породил — это IGNORED, не ERROR и не PENDING.
		return o.finish(alert, domain.AlertStatusIgnored, "no eligible strategy produced an order")
	}
}

// processStrategy ведет одну стратегию через гейт, builder и исполнение.
// Возвращает true если ордер был отправлен брокеру.
func (o *Orchestrator) processStrategy(ctx context.Context, alert *domain.Alert, strategy *domain.Strategy) (bool, error) {
	cfg := risk.ApplyDefaults(strategy.Config, o.profile)

	// Дешевые проверки до походов в БД
	if d := o.evaluator.CheckSymbolAndHours(alert, cfg); !d.Allowed {
		o.logStrategySkip(alert, strategy, d.Reason)
		return false, nil
	}

	state, err := o.loadTradingState(alert.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to load trading state: %w", err)
	}

	if d := o.evaluator.Evaluate(alert, cfg, state); !d.Allowed {
		o.logStrategySkip(alert, strategy, d.Reason)
		return false, nil
	}

	params := BuildOrderParams(alert, cfg)
	if params == nil {
		o.logStrategySkip(alert, strategy, "no actionable order params")
		return false, nil
	}

	return true, o.execute(ctx, alert, strategy, params)
}

// execute размещает ордер: PENDING строка коммитится до вызова брокера,
// чтобы локальная запись о намерении пережила зависший или упавший вызов.
// При ошибке брокера ордер остается PENDING — его видно для ручного разбора.
func (o *Orchestrator) execute(ctx context.Context, alert *domain.Alert, strategy *domain.Strategy, params *domain.OrderParams) error {
	token, err := o.creds.AccessToken(ctx, alert.UserID)
	if err != nil {
		return err
	}

	order := &domain.Order{
		UserID:      alert.UserID,
		StrategyID:  &strategy.ID,
		AlertID:     &alert.ID,
		Symbol:      params.Symbol,
		Side:        params.Side,
		Quantity:    params.Quantity,
		OrderType:   params.OrderType,
		ProductType: params.ProductType,
		Price:       params.LimitPrice,
		StopPrice:   params.StopPrice,
		Status:      domain.OrderStatusPending,
	}
	if err := o.orders.Save(order); err != nil {
		return fmt.Errorf("failed to persist order: %w", err)
	}

	req, err := buildBrokerRequest(params)
	if err != nil {
		return err
	}

	ack, err := o.broker.PlaceOrder(ctx, token, req)
	if err != nil {
		monitoring.BrokerErrors.Inc()
		return err
	}

	if err := o.orders.MarkSubmitted(order.ID, ack.ID, ack.Raw); err != nil {
		return fmt.Errorf("failed to mark order %d submitted: %w", order.ID, err)
	}

	monitoring.OrdersSubmitted.Inc()
	o.logger.WithFields(map[string]interface{}{
		"order_id":        order.ID,
		"broker_order_id": ack.ID,
		"symbol":          params.Symbol,
		"side":            params.Side,
		"qty":             params.Quantity,
	}).Info("Order submitted")

	return nil
}

// loadTradingState читает счетчики риска пользователя на текущий момент
func (o *Orchestrator) loadTradingState(userID int64) (domain.TradingState, error) {
	count, err := o.positions.CountActive(userID)
	if err != nil {
		return domain.TradingState{}, err
	}

	pnl, err := o.trades.SumRealizedPnLSince(userID, startOfDay(time.Now()))
	if err != nil {
		return domain.TradingState{}, err
	}

	return domain.TradingState{
		OpenPositions:    count,
		TodayRealizedPnL: pnl,
	}, nil
}

func (o *Orchestrator) logStrategySkip(alert *domain.Alert, strategy *domain.Strategy, reason string) {
	monitoring.StrategiesRejected.WithLabelValues(reason).Inc()
	o.logger.Info("Strategy %d (%s) skipped alert %d: %s", strategy.ID, strategy.Name, alert.ID, reason)
}

func (o *Orchestrator) finish(alert *domain.Alert, status, message string) error {
	if err := o.status.UpdateStatus(alert.ID, status, message); err != nil {
		o.logger.Error("Failed to finalize alert %d as %s: %v", alert.ID, status, err)
		return err
	}
	o.logger.Info("Alert %d -> %s: %s", alert.ID, status, message)
	if status == domain.AlertStatusError {
		return errors.New(message)
	}
	return nil
}

// buildBrokerRequest переводит параметры в wire-форму брокера
func buildBrokerRequest(params *domain.OrderParams) (broker.OrderRequest, error) {
	side, err := broker.EncodeSide(params.Side)
	if err != nil {
		return broker.OrderRequest{}, err
	}
	orderType, err := broker.EncodeOrderType(params.OrderType)
	if err != nil {
		return broker.OrderRequest{}, err
	}

	return broker.OrderRequest{
		Symbol:       broker.MapSymbol(params.Symbol),
		Qty:          params.Quantity,
		Type:         orderType,
		Side:         side,
		ProductType:  params.ProductType,
		LimitPrice:   params.LimitPrice,
		StopPrice:    params.StopPrice,
		Validity:     "DAY",
		DisclosedQty: 0,
		OrderTag:     uuid.NewString(),
	}, nil
}

func validatePayload(payload domain.AlertPayload) error {
	if payload.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	switch payload.Action {
	case domain.ActionBuy, domain.ActionSell, domain.ActionHold:
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, payload.Action)
	}
	if payload.Price < 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}
	if payload.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
