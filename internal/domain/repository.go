package domain

import "time"

// AlertRepository определяет интерфейс для работы с сигналами
type AlertRepository interface {
	Save(alert *Alert) error
	Get(id int64) (*Alert, error)
	GetRecent(userID int64, limit int) ([]Alert, error)
	UpdateStatus(id int64, status, message string, processedAt time.Time) error
}

// StrategyRepository определяет интерфейс для работы со стратегиями
type StrategyRepository interface {
	Save(strategy *Strategy) error
	Get(id int64) (*Strategy, error)
	GetActive(userID int64) ([]Strategy, error)
	GetAll(userID int64) ([]Strategy, error)
	SetActive(id int64, active bool) error
}

// OrderRepository определяет интерфейс для работы с ордерами
type OrderRepository interface {
	Save(order *Order) error
	Get(id int64) (*Order, error)
	GetRecent(userID int64, limit int) ([]Order, error)
	GetOpenWithBrokerID() ([]Order, error)
	MarkSubmitted(id int64, brokerOrderID, brokerResponse string) error
	UpdateStatus(id int64, status string, filledQty int, charges float64, brokerResponse string) error
}

// PositionRepository определяет интерфейс для работы с позициями
type PositionRepository interface {
	GetActive(userID int64, symbol string) (*Position, error)
	GetAllActive(userID int64) ([]Position, error)
	CountActive(userID int64) (int, error)
	Upsert(position *Position) error
}

// TradeRepository определяет интерфейс для работы с филлами
type TradeRepository interface {
	Save(trade *Trade) error
	GetByOrder(orderID int64) ([]Trade, error)
	GetRecent(userID int64, limit int) ([]Trade, error)
	SumRealizedPnLSince(userID int64, since time.Time) (float64, error)
}

// FillRecorder атомарно применяет исполнение ордера: запись сделки,
// upsert позиции и смена статуса ордера в одной транзакции
type FillRecorder interface {
	ApplyFill(trade *Trade, position *Position, orderID int64, status string, filledQty int, charges float64, brokerResponse string) error
}

// SettingsRepository определяет интерфейс для работы с настройками пользователя
type SettingsRepository interface {
	Get(userID int64) (*UserSettings, error)
	Save(settings *UserSettings) error
	UpdateTokens(userID int64, accessTokenEnc, refreshTokenEnc string, expiry time.Time) error
}
