package domain

import "time"

// Alert представляет торговый сигнал, принятый от внешнего скринера
type Alert struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Symbol      string     `db:"symbol" json:"symbol"`
	Action      string     `db:"action" json:"action"` // "BUY", "SELL" or "HOLD"
	Price       float64    `db:"price" json:"price"`   // 0 если скринер не прислал цену
	Quantity    int        `db:"quantity" json:"quantity"`
	RawPayload  string     `db:"raw_payload" json:"raw_payload"` // JSON
	Status      string     `db:"status" json:"status"`           // "PENDING", "PROCESSED", "IGNORED", "ERROR"
	Message     string     `db:"message" json:"message"`
	ReceivedAt  time.Time  `db:"received_at" json:"received_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// StrategyConfig представляет типизированную конфигурацию стратегии.
// Значения по умолчанию применяются при загрузке, а не в pipeline.
type StrategyConfig struct {
	AllowedSymbols    []string `json:"allowed_symbols" yaml:"allowed_symbols"`
	BlockedSymbols    []string `json:"blocked_symbols" yaml:"blocked_symbols"`
	DefaultQuantity   int      `json:"default_quantity" yaml:"default_quantity"`
	OrderType         string   `json:"order_type" yaml:"order_type"`     // "MARKET", "LIMIT", "STOP_LOSS"
	ProductType       string   `json:"product_type" yaml:"product_type"` // "INTRADAY", "DELIVERY"
	StopLossPercent   float64  `json:"stop_loss_percent" yaml:"stop_loss_percent"`
	TakeProfitPercent float64  `json:"take_profit_percent" yaml:"take_profit_percent"`
	StartTime         string   `json:"start_time" yaml:"start_time"` // "HH:MM"
	EndTime           string   `json:"end_time" yaml:"end_time"`     // "HH:MM"
	MaxPositions      int      `json:"max_positions" yaml:"max_positions"`
	MaxPositionSize   float64  `json:"max_position_size" yaml:"max_position_size"`
	DailyLossLimit    float64  `json:"daily_loss_limit" yaml:"daily_loss_limit"`
}

// Strategy представляет пользовательскую конфигурацию автоматизации
type Strategy struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	Name      string         `db:"name" json:"name"`
	Config    StrategyConfig `db:"config" json:"config"`
	Active    bool           `db:"active" json:"active"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Order представляет брокерский ордер и его жизненный цикл
type Order struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	StrategyID     *int64     `db:"strategy_id" json:"strategy_id,omitempty"`
	AlertID        *int64     `db:"alert_id" json:"alert_id,omitempty"`
	Symbol         string     `db:"symbol" json:"symbol"`
	Side           string     `db:"side" json:"side"` // "BUY" or "SELL"
	Quantity       int        `db:"quantity" json:"quantity"`
	OrderType      string     `db:"order_type" json:"order_type"` // "MARKET", "LIMIT", "STOP_LOSS"
	ProductType    string     `db:"product_type" json:"product_type"`
	Price          float64    `db:"price" json:"price"`
	StopPrice      float64    `db:"stop_price" json:"stop_price"`
	Status         string     `db:"status" json:"status"`
	BrokerOrderID  string     `db:"broker_order_id" json:"broker_order_id"`
	BrokerResponse string     `db:"broker_response" json:"broker_response"` // JSON, append-only
	FilledQty      int        `db:"filled_qty" json:"filled_qty"`
	Charges        float64    `db:"charges" json:"charges"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	FilledAt       *time.Time `db:"filled_at" json:"filled_at,omitempty"`
}

// IsTerminal возвращает true если статус ордера финальный
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Position представляет агрегированную открытую экспозицию по (user, symbol)
type Position struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	Symbol        string     `db:"symbol" json:"symbol"`
	Quantity      int        `db:"quantity" json:"quantity"` // знаковое: шорт < 0
	AvgPrice      float64    `db:"avg_price" json:"avg_price"`
	CurrentPrice  float64    `db:"current_price" json:"current_price"`
	UnrealizedPnL float64    `db:"unrealized_pnl" json:"unrealized_pnl"`
	RealizedPnL   float64    `db:"realized_pnl" json:"realized_pnl"`
	Active        bool       `db:"active" json:"active"`
	OpenedAt      time.Time  `db:"opened_at" json:"opened_at"`
	ClosedAt      *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// Trade представляет исполненный филл, append-only запись
type Trade struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	OrderID     int64     `db:"order_id" json:"order_id"`
	Symbol      string    `db:"symbol" json:"symbol"`
	Side        string    `db:"side" json:"side"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Price       float64   `db:"price" json:"price"`
	Charges     float64   `db:"charges" json:"charges"`
	RealizedPnL float64   `db:"realized_pnl" json:"realized_pnl"`
	ExecutedAt  time.Time `db:"executed_at" json:"executed_at"`
}

// UserSettings представляет настройки пользователя, включая брокерские токены.
// Токены хранятся зашифрованными, доступ только через credentials.Accessor.
type UserSettings struct {
	UserID             int64      `db:"user_id" json:"user_id"`
	AccessTokenEnc     string     `db:"access_token_enc" json:"-"`
	RefreshTokenEnc    string     `db:"refresh_token_enc" json:"-"`
	TokenExpiry        *time.Time `db:"token_expiry" json:"token_expiry,omitempty"`
	PinEnc             string     `db:"pin_enc" json:"-"`
	AutoExecuteEnabled bool       `db:"auto_execute_enabled" json:"auto_execute_enabled"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// AlertPayload представляет контракт входящего webhook сигнала
type AlertPayload struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
}

// OrderParams представляет нормализованные параметры ордера,
// построенные из сигнала и конфигурации стратегии
type OrderParams struct {
	Symbol      string
	Side        string
	Quantity    int
	OrderType   string
	ProductType string
	LimitPrice  float64
	StopPrice   float64
}

// TradingState представляет счетчики риска пользователя на момент проверки
type TradingState struct {
	OpenPositions    int
	TodayRealizedPnL float64
}
