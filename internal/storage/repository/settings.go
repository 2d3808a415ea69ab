package repository

import (
	"database/sql"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// SettingsRepository реализует работу с настройками пользователя
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository создает новый репозиторий для настроек
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get получает настройки пользователя
func (r *SettingsRepository) Get(userID int64) (*domain.UserSettings, error) {
	settings := &domain.UserSettings{}
	query := `
		SELECT user_id, access_token_enc, refresh_token_enc, token_expiry,
		       pin_enc, auto_execute_enabled, updated_at
		FROM user_settings WHERE user_id = $1
	`
	err := r.db.QueryRow(query, userID).Scan(
		&settings.UserID,
		&settings.AccessTokenEnc,
		&settings.RefreshTokenEnc,
		&settings.TokenExpiry,
		&settings.PinEnc,
		&settings.AutoExecuteEnabled,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Save обновляет или создает настройки пользователя
func (r *SettingsRepository) Save(settings *domain.UserSettings) error {
	settings.UpdatedAt = time.Now()
	query := `
		INSERT INTO user_settings (user_id, access_token_enc, refresh_token_enc, token_expiry,
		                           pin_enc, auto_execute_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			token_expiry = EXCLUDED.token_expiry,
			pin_enc = EXCLUDED.pin_enc,
			auto_execute_enabled = EXCLUDED.auto_execute_enabled,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(
		query,
		settings.UserID,
		settings.AccessTokenEnc,
		settings.RefreshTokenEnc,
		settings.TokenExpiry,
		settings.PinEnc,
		settings.AutoExecuteEnabled,
		settings.UpdatedAt,
	)
	return err
}

// UpdateTokens обновляет токены после refresh
func (r *SettingsRepository) UpdateTokens(userID int64, accessTokenEnc, refreshTokenEnc string, expiry time.Time) error {
	query := `
		UPDATE user_settings
		SET access_token_enc = $2, refresh_token_enc = $3, token_expiry = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.db.Exec(query, userID, accessTokenEnc, refreshTokenEnc, expiry)
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
