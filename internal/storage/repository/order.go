package repository

import (
	"database/sql"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// OrderRepository реализует работу с ордерами
type OrderRepository struct {
	db dbtx
}

// NewOrderRepository создает новый репозиторий для ордеров
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx возвращает копию репозитория, привязанную к транзакции
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{db: tx}
}

const orderColumns = `id, user_id, strategy_id, alert_id, symbol, side, quantity,
	       order_type, product_type, price, stop_price, status,
	       COALESCE(broker_order_id, ''), COALESCE(broker_response, ''),
	       filled_qty, charges, created_at, updated_at, filled_at`

// Save сохраняет новый ордер со статусом PENDING.
// Строка фиксируется до вызова брокера: PENDING запись — durable
// свидетельство намерения, даже если брокер упадет или зависнет.
func (r *OrderRepository) Save(order *domain.Order) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	query := `
		INSERT INTO orders (user_id, strategy_id, alert_id, symbol, side, quantity,
		                    order_type, product_type, price, stop_price, status,
		                    broker_order_id, broker_response, filled_qty, charges,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	return r.db.QueryRow(
		query,
		order.UserID,
		order.StrategyID,
		order.AlertID,
		order.Symbol,
		order.Side,
		order.Quantity,
		order.OrderType,
		order.ProductType,
		order.Price,
		order.StopPrice,
		order.Status,
		order.BrokerOrderID,
		order.BrokerResponse,
		order.FilledQty,
		order.Charges,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)
}

// Get получает ордер по id
func (r *OrderRepository) Get(id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetRecent получает последние N ордеров пользователя
func (r *OrderRepository) GetRecent(userID int64, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.queryOrders(query, userID, limit)
}

// GetOpenWithBrokerID получает нетерминальные ордера с брокерским id —
// кандидаты на реконсиляцию. PARTIALLY_FILLED остается в выборке:
// частично исполненный ордер опрашивается до терминального статуса.
func (r *OrderRepository) GetOpenWithBrokerID() ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN ('PENDING', 'SUBMITTED', 'PARTIALLY_FILLED') AND broker_order_id <> ''
		ORDER BY created_at`
	return r.queryOrders(query)
}

// MarkSubmitted переводит ордер PENDING -> SUBMITTED с брокерским id
func (r *OrderRepository) MarkSubmitted(id int64, brokerOrderID, brokerResponse string) error {
	query := `
		UPDATE orders
		SET status = 'SUBMITTED', broker_order_id = $2, broker_response = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.db.Exec(query, id, brokerOrderID, brokerResponse)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus записывает статус из брокерского order book.
// Терминальные ордера не трогаем, broker_response дописывается всегда.
func (r *OrderRepository) UpdateStatus(id int64, status string, filledQty int, charges float64, brokerResponse string) error {
	query := `
		UPDATE orders
		SET status = $2,
		    filled_qty = $3,
		    charges = $4,
		    broker_response = broker_response || $5,
		    filled_at = CASE WHEN $2 = 'FILLED' AND filled_at IS NULL THEN NOW() ELSE filled_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('FILLED', 'CANCELLED', 'REJECTED')
	`
	result, err := r.db.Exec(query, id, status, filledQty, charges, brokerResponse)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOrderTerminal
	}
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.StrategyID,
		&order.AlertID,
		&order.Symbol,
		&order.Side,
		&order.Quantity,
		&order.OrderType,
		&order.ProductType,
		&order.Price,
		&order.StopPrice,
		&order.Status,
		&order.BrokerOrderID,
		&order.BrokerResponse,
		&order.FilledQty,
		&order.Charges,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.FilledAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) queryOrders(query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}
