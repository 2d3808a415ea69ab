package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/udihermony/algo-trader/internal/domain"
)

// Client определяет capability-контракт брокерского API.
// Единственная реализация выбирается при старте процесса, токен
// передается в каждый вызов — клиент не хранит состояние пользователя.
type Client interface {
	PlaceOrder(ctx context.Context, token string, req OrderRequest) (*OrderAck, error)
	GetOrderBook(ctx context.Context, token string) ([]BrokerOrder, error)
	GetPositions(ctx context.Context, token string) ([]BrokerPosition, error)
	GetBalance(ctx context.Context, token string) (*Balance, error)
	RefreshAccessToken(ctx context.Context, refreshToken, pin string) (string, error)
}

// OrderRequest представляет нормализованный запрос на размещение ордера
type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"` // 1=LIMIT, 2=MARKET, 3=STOP
	Side         int     `json:"side"` // +1=BUY, -1=SELL
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Validity     string  `json:"validity"`
	DisclosedQty int     `json:"disclosedQty"`
	StopLoss     float64 `json:"stopLoss,omitempty"`
	TakeProfit   float64 `json:"takeProfit,omitempty"`
	OrderTag     string  `json:"orderTag,omitempty"`
}

// OrderAck представляет подтверждение брокера о принятии ордера
type OrderAck struct {
	ID     string
	Status string
	Raw    string // исходный JSON ответа
}

// BrokerOrder представляет запись из брокерского order book
type BrokerOrder struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Status    int     `json:"status"` // брокерский числовой код
	Qty       int     `json:"qty"`
	FilledQty int     `json:"filledQty"`
	AvgPrice  float64 `json:"tradedPrice"`
	Charges   float64 `json:"charges"`
	Message   string  `json:"message"`
}

// BrokerPosition представляет позицию из position book брокера
type BrokerPosition struct {
	Symbol   string  `json:"symbol"`
	NetQty   int     `json:"netQty"`
	AvgPrice float64 `json:"netAvg"`
	PnL      float64 `json:"pl"`
}

// Balance представляет доступные средства
type Balance struct {
	Available float64 `json:"availableBalance"`
	Utilized  float64 `json:"utilizedAmount"`
}

// APIError представляет ошибку брокерского API с числовым кодом
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("broker error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("broker error: %s", e.Message)
}

// Брокерские числовые коды
const (
	wireTypeLimit  = 1
	wireTypeMarket = 2
	wireTypeStop   = 3

	wireSideBuy  = 1
	wireSideSell = -1

	wireStatusCancelled = 1
	wireStatusFilled    = 2
	wireStatusTransit   = 4
	wireStatusRejected  = 5
	wireStatusPending   = 6
)

// EncodeSide кодирует сторону сделки в +1/-1
func EncodeSide(side string) (int, error) {
	switch side {
	case domain.SideBuy:
		return wireSideBuy, nil
	case domain.SideSell:
		return wireSideSell, nil
	}
	return 0, fmt.Errorf("%w: side %q", domain.ErrInvalidInput, side)
}

// EncodeOrderType кодирует тип ордера в брокерский числовой код
func EncodeOrderType(orderType string) (int, error) {
	switch orderType {
	case domain.OrderTypeLimit:
		return wireTypeLimit, nil
	case domain.OrderTypeMarket:
		return wireTypeMarket, nil
	case domain.OrderTypeStopLoss:
		return wireTypeStop, nil
	}
	return 0, fmt.Errorf("%w: order type %q", domain.ErrInvalidInput, orderType)
}

// MapSymbol приводит символ к exchange-qualified форме: "RELIANCE" -> "NSE:RELIANCE-EQ".
// Символы с уже указанной биржей не трогаем.
func MapSymbol(symbol string) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	return "NSE:" + strings.ToUpper(symbol) + "-EQ"
}

// DecodeStatus переводит брокерский числовой статус в локальный.
// Частично исполненный pending ордер считается PARTIALLY_FILLED.
func DecodeStatus(order BrokerOrder) string {
	switch order.Status {
	case wireStatusFilled:
		return domain.OrderStatusFilled
	case wireStatusCancelled:
		return domain.OrderStatusCancelled
	case wireStatusRejected:
		return domain.OrderStatusRejected
	case wireStatusPending, wireStatusTransit:
		if order.FilledQty > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusSubmitted
	}
	return domain.OrderStatusSubmitted
}
