package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/udihermony/algo-trader/internal/broker"
	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/pkg/utils"
)

// Accessor выдает расшифрованный access token пользователя.
// Единственная точка доступа к брокерским credentials: токены
// никогда не логируются и не покидают процесс в открытом виде.
type Accessor struct {
	settings domain.SettingsRepository
	broker   broker.Client
	cipher   *Cipher
	logger   *utils.Logger
}

// NewAccessor создает accessor
func NewAccessor(settings domain.SettingsRepository, brokerClient broker.Client, cipher *Cipher, logger *utils.Logger) *Accessor {
	return &Accessor{
		settings: settings,
		broker:   brokerClient,
		cipher:   cipher,
		logger:   logger,
	}
}

// AccessToken возвращает действующий access token пользователя.
// Истекший токен обновляется через брокера с сохраненным PIN,
// новый токен сразу сохраняется обратно зашифрованным.
func (a *Accessor) AccessToken(ctx context.Context, userID int64) (string, error) {
	settings, err := a.settings.Get(userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrCredentialsNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user settings: %w", err)
	}

	if settings.AccessTokenEnc == "" {
		return "", domain.ErrCredentialsNotFound
	}

	if settings.TokenExpiry == nil || settings.TokenExpiry.After(time.Now()) {
		return a.cipher.Decrypt(settings.AccessTokenEnc)
	}

	return a.refresh(ctx, settings)
}

// AutoExecuteEnabled возвращает пользовательский флаг авто-исполнения.
// Отсутствие настроек трактуется как выключенное авто-исполнение.
func (a *Accessor) AutoExecuteEnabled(userID int64) (bool, error) {
	settings, err := a.settings.Get(userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return settings.AutoExecuteEnabled, nil
}

func (a *Accessor) refresh(ctx context.Context, settings *domain.UserSettings) (string, error) {
	if settings.RefreshTokenEnc == "" || settings.PinEnc == "" {
		return "", domain.ErrTokenExpired
	}

	refreshToken, err := a.cipher.Decrypt(settings.RefreshTokenEnc)
	if err != nil {
		return "", err
	}
	pin, err := a.cipher.Decrypt(settings.PinEnc)
	if err != nil {
		return "", err
	}

	a.logger.Info("Refreshing expired access token for user %d", settings.UserID)

	accessToken, err := a.broker.RefreshAccessToken(ctx, refreshToken, pin)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	accessTokenEnc, err := a.cipher.Encrypt(accessToken)
	if err != nil {
		return "", err
	}

	// Брокер выдает токен до конца следующего торгового дня
	expiry := time.Now().Add(24 * time.Hour)
	if err := a.settings.UpdateTokens(settings.UserID, accessTokenEnc, settings.RefreshTokenEnc, expiry); err != nil {
		a.logger.Error("Failed to persist refreshed token for user %d: %v", settings.UserID, err)
	}

	return accessToken, nil
}
