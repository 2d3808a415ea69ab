package repository

import (
	"database/sql"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// TradeRepository реализует работу с филлами
type TradeRepository struct {
	db dbtx
}

// NewTradeRepository создает новый репозиторий для филлов
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx возвращает копию репозитория, привязанную к транзакции
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{db: tx}
}

// Save сохраняет новый филл
func (r *TradeRepository) Save(trade *domain.Trade) error {
	query := `
		INSERT INTO trades (user_id, order_id, symbol, side, quantity, price, charges, realized_pnl, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = time.Now()
	}
	return r.db.QueryRow(
		query,
		trade.UserID,
		trade.OrderID,
		trade.Symbol,
		trade.Side,
		trade.Quantity,
		trade.Price,
		trade.Charges,
		trade.RealizedPnL,
		trade.ExecutedAt,
	).Scan(&trade.ID)
}

// GetByOrder получает все филлы ордера
func (r *TradeRepository) GetByOrder(orderID int64) ([]domain.Trade, error) {
	query := `
		SELECT id, user_id, order_id, symbol, side, quantity, price, charges, realized_pnl, executed_at
		FROM trades
		WHERE order_id = $1
		ORDER BY executed_at
	`
	return r.queryTrades(query, orderID)
}

// GetRecent получает последние N филлов пользователя
func (r *TradeRepository) GetRecent(userID int64, limit int) ([]domain.Trade, error) {
	query := `
		SELECT id, user_id, order_id, symbol, side, quantity, price, charges, realized_pnl, executed_at
		FROM trades
		WHERE user_id = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`
	return r.queryTrades(query, userID, limit)
}

// SumRealizedPnLSince суммирует реализованный PnL пользователя начиная с момента since.
// Используется проверкой дневного лимита убытков.
func (r *TradeRepository) SumRealizedPnLSince(userID int64, since time.Time) (float64, error) {
	var sum float64
	query := `
		SELECT COALESCE(SUM(realized_pnl), 0)
		FROM trades
		WHERE user_id = $1 AND executed_at >= $2
	`
	err := r.db.QueryRow(query, userID, since).Scan(&sum)
	return sum, err
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]domain.Trade, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var trade domain.Trade
		err := rows.Scan(
			&trade.ID,
			&trade.UserID,
			&trade.OrderID,
			&trade.Symbol,
			&trade.Side,
			&trade.Quantity,
			&trade.Price,
			&trade.Charges,
			&trade.RealizedPnL,
			&trade.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
