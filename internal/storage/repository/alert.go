package repository

import (
	"database/sql"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// AlertRepository реализует работу с сигналами
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый репозиторий для сигналов
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save сохраняет новый сигнал
func (r *AlertRepository) Save(alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (user_id, symbol, action, price, quantity, raw_payload, status, message, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if alert.ReceivedAt.IsZero() {
		alert.ReceivedAt = time.Now()
	}
	return r.db.QueryRow(
		query,
		alert.UserID,
		alert.Symbol,
		alert.Action,
		alert.Price,
		alert.Quantity,
		alert.RawPayload,
		alert.Status,
		alert.Message,
		alert.ReceivedAt,
	).Scan(&alert.ID)
}

// Get получает сигнал по id
func (r *AlertRepository) Get(id int64) (*domain.Alert, error) {
	alert := &domain.Alert{}
	query := `
		SELECT id, user_id, symbol, action, price, quantity, COALESCE(raw_payload, ''),
		       status, message, received_at, processed_at
		FROM alerts WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&alert.ID,
		&alert.UserID,
		&alert.Symbol,
		&alert.Action,
		&alert.Price,
		&alert.Quantity,
		&alert.RawPayload,
		&alert.Status,
		&alert.Message,
		&alert.ReceivedAt,
		&alert.ProcessedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetRecent получает последние N сигналов пользователя
func (r *AlertRepository) GetRecent(userID int64, limit int) ([]domain.Alert, error) {
	query := `
		SELECT id, user_id, symbol, action, price, quantity, COALESCE(raw_payload, ''),
		       status, message, received_at, processed_at
		FROM alerts
		WHERE user_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		err := rows.Scan(
			&alert.ID,
			&alert.UserID,
			&alert.Symbol,
			&alert.Action,
			&alert.Price,
			&alert.Quantity,
			&alert.RawPayload,
			&alert.Status,
			&alert.Message,
			&alert.ReceivedAt,
			&alert.ProcessedAt,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// UpdateStatus переводит сигнал в терминальный статус
func (r *AlertRepository) UpdateStatus(id int64, status, message string, processedAt time.Time) error {
	query := `
		UPDATE alerts
		SET status = $2, message = $3, processed_at = $4
		WHERE id = $1
	`
	result, err := r.db.Exec(query, id, status, message, processedAt)
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
