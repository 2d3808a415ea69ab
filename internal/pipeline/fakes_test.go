package pipeline

import (
	"context"
	"time"

	"github.com/udihermony/algo-trader/internal/broker"
	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/pkg/utils"
)

func testLogger() *utils.Logger {
	return utils.NewLogger("error", "")
}

type fakeAlertRepo struct {
	lastStatus  string
	lastMessage string
	updates     int
	updateErr   error
}

func (f *fakeAlertRepo) Save(alert *domain.Alert) error { return nil }
func (f *fakeAlertRepo) Get(id int64) (*domain.Alert, error) { return nil, domain.ErrNotFound }
func (f *fakeAlertRepo) GetRecent(int64, int) ([]domain.Alert, error) { return nil, nil }

func (f *fakeAlertRepo) UpdateStatus(id int64, status, message string, processedAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastStatus = status
	f.lastMessage = message
	f.updates++
	return nil
}

type fakeStrategyRepo struct {
	active []domain.Strategy
	err    error
}

func (f *fakeStrategyRepo) Save(*domain.Strategy) error { return nil }
func (f *fakeStrategyRepo) Get(int64) (*domain.Strategy, error) { return nil, domain.ErrNotFound }
func (f *fakeStrategyRepo) GetAll(int64) ([]domain.Strategy, error) { return f.active, nil }
func (f *fakeStrategyRepo) SetActive(int64, bool) error { return nil }

func (f *fakeStrategyRepo) GetActive(userID int64) ([]domain.Strategy, error) {
	return f.active, f.err
}

type orderStatusUpdate struct {
	id        int64
	status    string
	filledQty int
	charges   float64
}

type fakeOrderRepo struct {
	nextID    int64
	saved     []*domain.Order
	byID      map[int64]*domain.Order
	submitted map[int64]string
	updates   []orderStatusUpdate
	open      []domain.Order

	saveErr   error
	markErr   error
	updateErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[int64]*domain.Order{}, submitted: map[int64]string{}}
}

func (f *fakeOrderRepo) Save(order *domain.Order) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.nextID++
	order.ID = f.nextID
	snapshot := *order
	f.saved = append(f.saved, &snapshot)
	cp := *order
	f.byID[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) Get(id int64) (*domain.Order, error) {
	order, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) GetRecent(int64, int) ([]domain.Order, error) { return nil, nil }

func (f *fakeOrderRepo) GetOpenWithBrokerID() ([]domain.Order, error) {
	return f.open, nil
}

func (f *fakeOrderRepo) MarkSubmitted(id int64, brokerOrderID, brokerResponse string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.submitted[id] = brokerOrderID
	if order, ok := f.byID[id]; ok {
		order.Status = domain.OrderStatusSubmitted
		order.BrokerOrderID = brokerOrderID
	}
	return nil
}

func (f *fakeOrderRepo) UpdateStatus(id int64, status string, filledQty int, charges float64, brokerResponse string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, orderStatusUpdate{id: id, status: status, filledQty: filledQty, charges: charges})
	if order, ok := f.byID[id]; ok {
		order.Status = status
		order.FilledQty = filledQty
		order.Charges = charges
	}
	return nil
}

type fakePositionRepo struct {
	active  map[string]*domain.Position
	count   int
	upserts []domain.Position
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{active: map[string]*domain.Position{}}
}

func (f *fakePositionRepo) GetActive(userID int64, symbol string) (*domain.Position, error) {
	position, ok := f.active[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *position
	return &cp, nil
}

func (f *fakePositionRepo) GetAllActive(int64) ([]domain.Position, error) { return nil, nil }

func (f *fakePositionRepo) CountActive(int64) (int, error) { return f.count, nil }

func (f *fakePositionRepo) Upsert(position *domain.Position) error {
	f.upserts = append(f.upserts, *position)
	cp := *position
	if cp.Quantity == 0 {
		delete(f.active, cp.Symbol)
	} else {
		f.active[cp.Symbol] = &cp
	}
	return nil
}

type fakeTradeRepo struct {
	trades []domain.Trade
	pnl    float64
}

func (f *fakeTradeRepo) Save(trade *domain.Trade) error {
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeTradeRepo) GetByOrder(int64) ([]domain.Trade, error) { return nil, nil }
func (f *fakeTradeRepo) GetRecent(int64, int) ([]domain.Trade, error) { return nil, nil }

func (f *fakeTradeRepo) SumRealizedPnLSince(int64, time.Time) (float64, error) {
	return f.pnl, nil
}

// fakeFillRecorder повторяет транзакционный контракт: при ошибке не
// применяется ни одна из трех записей
type fakeFillRecorder struct {
	orders    *fakeOrderRepo
	positions *fakePositionRepo
	trades    *fakeTradeRepo

	failures int
	err      error
}

func (f *fakeFillRecorder) ApplyFill(trade *domain.Trade, position *domain.Position, orderID int64, status string, filledQty int, charges float64, brokerResponse string) error {
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	if err := f.trades.Save(trade); err != nil {
		return err
	}
	if err := f.positions.Upsert(position); err != nil {
		return err
	}
	return f.orders.UpdateStatus(orderID, status, filledQty, charges, brokerResponse)
}

type fakeCreds struct {
	token       string
	tokenErr    error
	autoExecute bool
	autoErr     error
}

func (f *fakeCreds) AccessToken(context.Context, int64) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeCreds) AutoExecuteEnabled(int64) (bool, error) {
	return f.autoExecute, f.autoErr
}

type fakeBroker struct {
	ack      *broker.OrderAck
	placeErr error
	requests []broker.OrderRequest

	book    []broker.BrokerOrder
	bookErr error
}

func (f *fakeBroker) PlaceOrder(ctx context.Context, token string, req broker.OrderRequest) (*broker.OrderAck, error) {
	f.requests = append(f.requests, req)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.ack, nil
}

func (f *fakeBroker) GetOrderBook(context.Context, string) ([]broker.BrokerOrder, error) {
	return f.book, f.bookErr
}

func (f *fakeBroker) GetPositions(context.Context, string) ([]broker.BrokerPosition, error) {
	return nil, nil
}

func (f *fakeBroker) GetBalance(context.Context, string) (*broker.Balance, error) {
	return nil, nil
}

func (f *fakeBroker) RefreshAccessToken(context.Context, string, string) (string, error) {
	return "", nil
}

type fakeNotifier struct {
	notes []string
}

func (f *fakeNotifier) Notify(text string) {
	f.notes = append(f.notes, text)
}
