package repository

import (
	"database/sql"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// PositionRepository реализует работу с позициями
type PositionRepository struct {
	db dbtx
}

// NewPositionRepository создает новый репозиторий для позиций
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithTx возвращает копию репозитория, привязанную к транзакции
func (r *PositionRepository) WithTx(tx *sql.Tx) *PositionRepository {
	return &PositionRepository{db: tx}
}

const positionColumns = `id, user_id, symbol, quantity, avg_price,
	       COALESCE(current_price, 0), unrealized_pnl, realized_pnl,
	       active, opened_at, closed_at`

// GetActive получает активную позицию по (user, symbol)
func (r *PositionRepository) GetActive(userID int64, symbol string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1 AND symbol = $2 AND active = true`
	position, err := scanPosition(r.db.QueryRow(query, userID, symbol))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return position, nil
}

// GetAllActive получает все активные позиции пользователя
func (r *PositionRepository) GetAllActive(userID int64) ([]domain.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1 AND active = true
		ORDER BY symbol`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *position)
	}

	return positions, rows.Err()
}

// CountActive считает активные позиции пользователя
func (r *PositionRepository) CountActive(userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM positions WHERE user_id = $1 AND active = true`
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}

// Upsert обновляет или создает позицию. Частичный уникальный индекс на
// (user_id, symbol) WHERE active гарантирует единственность активной записи.
func (r *PositionRepository) Upsert(position *domain.Position) error {
	if position.Quantity == 0 {
		position.Active = false
		if position.ClosedAt == nil {
			now := time.Now()
			position.ClosedAt = &now
		}
	}

	if position.ID != 0 {
		query := `
			UPDATE positions
			SET quantity = $2, avg_price = $3, current_price = $4,
			    unrealized_pnl = $5, realized_pnl = $6, active = $7, closed_at = $8
			WHERE id = $1
		`
		_, err := r.db.Exec(
			query,
			position.ID,
			position.Quantity,
			position.AvgPrice,
			position.CurrentPrice,
			position.UnrealizedPnL,
			position.RealizedPnL,
			position.Active,
			position.ClosedAt,
		)
		return err
	}

	if position.OpenedAt.IsZero() {
		position.OpenedAt = time.Now()
	}
	query := `
		INSERT INTO positions (user_id, symbol, quantity, avg_price, current_price,
		                       unrealized_pnl, realized_pnl, active, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, symbol) WHERE active DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_price = EXCLUDED.avg_price,
			current_price = EXCLUDED.current_price,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			active = EXCLUDED.active,
			closed_at = EXCLUDED.closed_at
		RETURNING id
	`
	return r.db.QueryRow(
		query,
		position.UserID,
		position.Symbol,
		position.Quantity,
		position.AvgPrice,
		position.CurrentPrice,
		position.UnrealizedPnL,
		position.RealizedPnL,
		position.Active,
		position.OpenedAt,
		position.ClosedAt,
	).Scan(&position.ID)
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var position domain.Position
	err := row.Scan(
		&position.ID,
		&position.UserID,
		&position.Symbol,
		&position.Quantity,
		&position.AvgPrice,
		&position.CurrentPrice,
		&position.UnrealizedPnL,
		&position.RealizedPnL,
		&position.Active,
		&position.OpenedAt,
		&position.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &position, nil
}
