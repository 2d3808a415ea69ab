package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/udihermony/algo-trader/internal/broker"
	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/internal/monitoring"
	"github.com/udihermony/algo-trader/pkg/utils"
)

// Reconciler опрашивает брокера и синхронизирует локальные ордера с
// реальным состоянием: статусы, исполненные количества, сделки, позиции.
// Каждый проход идемпотентен — ордер без изменений не трогается.
type Reconciler struct {
	orders    domain.OrderRepository
	positions domain.PositionRepository
	fills     domain.FillRecorder
	creds     CredentialSource
	broker    broker.Client
	interval  time.Duration
	logger    *utils.Logger
	notifier  Notifier
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewReconciler создает reconciler
func NewReconciler(
	orders domain.OrderRepository,
	positions domain.PositionRepository,
	fills domain.FillRecorder,
	creds CredentialSource,
	brokerClient broker.Client,
	interval time.Duration,
	logger *utils.Logger,
	notifier Notifier,
) *Reconciler {
	return &Reconciler{
		orders:    orders,
		positions: positions,
		fills:     fills,
		creds:     creds,
		broker:    brokerClient,
		interval:  interval,
		logger:    logger,
		notifier:  notifier,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start запускает фоновый цикл опроса
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Reconciler started, polling every %s", r.interval)
	go r.run(ctx)
}

// Stop останавливает цикл и дожидается завершения текущего прохода
func (r *Reconciler) Stop() {
	close(r.stopChan)
	<-r.doneChan
	r.logger.Info("Reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcileAll(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// reconcileAll обходит все открытые ордера с брокерским id. Ошибка одного
// ордера не прерывает остальные.
func (r *Reconciler) reconcileAll(ctx context.Context) {
	monitoring.ReconcileTicks.Inc()

	open, err := r.orders.GetOpenWithBrokerID()
	if err != nil {
		r.logger.Error("Failed to load open orders: %v", err)
		return
	}
	if len(open) == 0 {
		return
	}

	// Книга ордеров запрашивается один раз на пользователя за проход
	books := make(map[int64][]broker.BrokerOrder)

	for i := range open {
		order := &open[i]
		book, ok := books[order.UserID]
		if !ok {
			book, err = r.fetchOrderBook(ctx, order.UserID)
			if err != nil {
				r.logger.Error("Failed to fetch order book for user %d: %v", order.UserID, err)
				books[order.UserID] = nil
				continue
			}
			books[order.UserID] = book
		}
		if book == nil {
			continue
		}

		if err := r.reconcileOrder(order, book); err != nil {
			r.logger.Error("Failed to reconcile order %d: %v", order.ID, err)
		}
	}
}

// MonitorOrderStatus синхронизирует один ордер по запросу, вне цикла опроса
func (r *Reconciler) MonitorOrderStatus(ctx context.Context, orderID int64) error {
	order, err := r.orders.Get(orderID)
	if err != nil {
		return err
	}
	if order.BrokerOrderID == "" || order.IsTerminal() {
		return nil
	}

	book, err := r.fetchOrderBook(ctx, order.UserID)
	if err != nil {
		return err
	}

	return r.reconcileOrder(order, book)
}

func (r *Reconciler) fetchOrderBook(ctx context.Context, userID int64) ([]broker.BrokerOrder, error) {
	token, err := r.creds.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	book, err := r.broker.GetOrderBook(ctx, token)
	if err != nil {
		monitoring.BrokerErrors.Inc()
		return nil, err
	}
	return book, nil
}

// reconcileOrder сравнивает локальный ордер с брокерской записью и
// применяет дельту. Ордер, которого нет в книге, остается как есть —
// книга может отставать от только что отправленного ордера.
func (r *Reconciler) reconcileOrder(order *domain.Order, book []broker.BrokerOrder) error {
	entry := findBrokerOrder(book, order.BrokerOrderID)
	if entry == nil {
		return nil
	}

	status := broker.DecodeStatus(*entry)

	delta := entry.FilledQty - order.FilledQty
	if remaining := order.Quantity - order.FilledQty; delta > remaining {
		// Брокер не может исполнить больше заказанного; лишнее обрезаем
		r.logger.Warn("Order %d reports fill beyond quantity (%d > %d)", order.ID, entry.FilledQty, order.Quantity)
		delta = remaining
	}

	if status == order.Status && delta <= 0 {
		return nil
	}

	newFilled := order.FilledQty + max(delta, 0)

	var err error
	if delta > 0 {
		err = r.applyFill(order, entry, status, delta, newFilled)
	} else {
		err = r.orders.UpdateStatus(order.ID, status, newFilled, entry.Charges, entry.Message)
	}
	if errors.Is(err, domain.ErrOrderTerminal) {
		// Ордер уже финализирован параллельным проходом
		return nil
	}
	if err != nil {
		return err
	}

	r.logger.Info("Order %d: %s -> %s (filled %d/%d)", order.ID, order.Status, status, newFilled, order.Quantity)

	if status == domain.OrderStatusFilled {
		monitoring.OrdersFilled.Inc()
		if r.notifier != nil {
			r.notifier.Notify(formatFillNote(order, entry))
		}
	}

	return nil
}

// applyFill фиксирует дельту исполнения. Позиция пересчитывается в памяти,
// после чего сделка, позиция и статус ордера пишутся одной транзакцией:
// повторная сверка после сбоя записи не задваивает ни сделку, ни позицию.
func (r *Reconciler) applyFill(order *domain.Order, entry *broker.BrokerOrder, status string, delta, newFilled int) error {
	fillPrice := entry.AvgPrice
	if fillPrice <= 0 {
		fillPrice = order.Price
	}

	position, err := r.positions.GetActive(order.UserID, order.Symbol)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	position, realized := advancePosition(position, order, fillPrice, delta)

	// Брокер отдает комиссию нарастающим итогом на весь ордер;
	// в сделку идет только прирост с прошлой сверки
	chargeDelta := entry.Charges - order.Charges
	if chargeDelta < 0 {
		chargeDelta = 0
	}

	trade := &domain.Trade{
		UserID:      order.UserID,
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    delta,
		Price:       fillPrice,
		Charges:     chargeDelta,
		RealizedPnL: realized,
		ExecutedAt:  time.Now(),
	}
	return r.fills.ApplyFill(trade, position, order.ID, status, newFilled, entry.Charges, entry.Message)
}

// advancePosition применяет исполнение к позиции в памяти и возвращает
// позицию вместе с реализованным PnL этой сделки. Количество позиции
// знаковое: long > 0, short < 0.
func advancePosition(position *domain.Position, order *domain.Order, fillPrice float64, delta int) (*domain.Position, float64) {
	signed := delta
	if order.Side == domain.SideSell {
		signed = -delta
	}

	if position == nil {
		// Новая позиция открывается по цене исполнения
		return &domain.Position{
			UserID:       order.UserID,
			Symbol:       order.Symbol,
			Quantity:     signed,
			AvgPrice:     fillPrice,
			CurrentPrice: fillPrice,
			Active:       true,
			OpenedAt:     time.Now(),
		}, 0
	}

	var realized float64
	oldQty := position.Quantity
	newQty := oldQty + signed

	switch {
	case oldQty > 0 == (signed > 0):
		// Докупка в ту же сторону: средняя цена взвешивается
		total := float64(abs(oldQty))*position.AvgPrice + float64(abs(signed))*fillPrice
		position.AvgPrice = total / float64(abs(newQty))
	case oldQty > 0 && newQty >= 0, oldQty < 0 && newQty <= 0:
		// Частичное или полное закрытие
		realized = pnlOnClose(oldQty, position.AvgPrice, fillPrice, abs(signed))
	default:
		// Переворот через ноль: закрываем все, остаток открывается
		// по цене исполнения
		realized = pnlOnClose(oldQty, position.AvgPrice, fillPrice, abs(oldQty))
		position.AvgPrice = fillPrice
		position.OpenedAt = time.Now()
	}

	position.Quantity = newQty
	position.CurrentPrice = fillPrice
	position.RealizedPnL += realized

	return position, realized
}

// pnlOnClose считает PnL закрытия closed штук позиции со знаковым oldQty
func pnlOnClose(oldQty int, avgPrice, fillPrice float64, closed int) float64 {
	if oldQty > 0 {
		return (fillPrice - avgPrice) * float64(closed)
	}
	return (avgPrice - fillPrice) * float64(closed)
}

func findBrokerOrder(book []broker.BrokerOrder, brokerOrderID string) *broker.BrokerOrder {
	for i := range book {
		if book[i].ID == brokerOrderID {
			return &book[i]
		}
	}
	return nil
}

func formatFillNote(order *domain.Order, entry *broker.BrokerOrder) string {
	return fmt.Sprintf("Order filled: %s %d %s @ %.2f", order.Side, order.Quantity, order.Symbol, entry.AvgPrice)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
