package domain

// Alert actions
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Alert statuses
const (
	AlertStatusPending   = "PENDING"
	AlertStatusProcessed = "PROCESSED"
	AlertStatusIgnored   = "IGNORED"
	AlertStatusError     = "ERROR"
)

// Order sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order statuses
const (
	OrderStatusPending         = "PENDING"
	OrderStatusSubmitted       = "SUBMITTED"
	OrderStatusFilled          = "FILLED"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusCancelled       = "CANCELLED"
	OrderStatusRejected        = "REJECTED"
)

// Order types
const (
	OrderTypeMarket   = "MARKET"
	OrderTypeLimit    = "LIMIT"
	OrderTypeStopLoss = "STOP_LOSS"
)

// Product types
const (
	ProductIntraday = "INTRADAY"
	ProductDelivery = "DELIVERY"
)

// Defaults применяемые при загрузке конфигурации стратегии
const (
	DefaultQuantity        = 1
	DefaultStartTime       = "09:15"
	DefaultEndTime         = "15:30"
	DefaultMaxPositions    = 10
	DefaultMaxPositionSize = 100000
	DefaultDailyLossLimit  = 10000
)
