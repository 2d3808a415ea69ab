package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// StrategyRepository реализует работу со стратегиями.
// Конфигурация хранится в JSONB, но наружу всегда отдается типизированной.
type StrategyRepository struct {
	db *sql.DB
}

// NewStrategyRepository создает новый репозиторий для стратегий
func NewStrategyRepository(db *sql.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// Save сохраняет или обновляет стратегию
func (r *StrategyRepository) Save(strategy *domain.Strategy) error {
	configJSON, err := json.Marshal(strategy.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy config: %w", err)
	}

	now := time.Now()
	if strategy.ID == 0 {
		strategy.CreatedAt = now
		strategy.UpdatedAt = now
		query := `
			INSERT INTO strategies (user_id, name, config, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		return r.db.QueryRow(
			query,
			strategy.UserID,
			strategy.Name,
			configJSON,
			strategy.Active,
			strategy.CreatedAt,
			strategy.UpdatedAt,
		).Scan(&strategy.ID)
	}

	strategy.UpdatedAt = now
	query := `
		UPDATE strategies
		SET name = $2, config = $3, active = $4, updated_at = $5
		WHERE id = $1
	`
	_, err = r.db.Exec(query, strategy.ID, strategy.Name, configJSON, strategy.Active, strategy.UpdatedAt)
	return err
}

// Get получает стратегию по id
func (r *StrategyRepository) Get(id int64) (*domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, active, created_at, updated_at
		FROM strategies WHERE id = $1
	`
	strategy, err := r.scanStrategy(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

// GetActive получает активные стратегии пользователя
func (r *StrategyRepository) GetActive(userID int64) ([]domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, active, created_at, updated_at
		FROM strategies
		WHERE user_id = $1 AND active = true
		ORDER BY id
	`
	return r.queryStrategies(query, userID)
}

// GetAll получает все стратегии пользователя
func (r *StrategyRepository) GetAll(userID int64) ([]domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, active, created_at, updated_at
		FROM strategies
		WHERE user_id = $1
		ORDER BY id
	`
	return r.queryStrategies(query, userID)
}

// SetActive включает или выключает стратегию
func (r *StrategyRepository) SetActive(id int64, active bool) error {
	query := `UPDATE strategies SET active = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(query, id, active)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *StrategyRepository) scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var strategy domain.Strategy
	var configJSON []byte
	err := row.Scan(
		&strategy.ID,
		&strategy.UserID,
		&strategy.Name,
		&configJSON,
		&strategy.Active,
		&strategy.CreatedAt,
		&strategy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configJSON, &strategy.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strategy config: %w", err)
	}
	return &strategy, nil
}

func (r *StrategyRepository) queryStrategies(query string, args ...interface{}) ([]domain.Strategy, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strategies []domain.Strategy
	for rows.Next() {
		strategy, err := r.scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *strategy)
	}

	return strategies, rows.Err()
}
