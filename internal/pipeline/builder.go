package pipeline

import (
	"github.com/udihermony/algo-trader/internal/domain"
)

// BuildOrderParams строит нормализованные параметры ордера из сигнала и
// конфигурации стратегии. Возвращает nil когда исполняемый ордер построить
// нельзя (LIMIT/STOP_LOSS без цены) — вызывающий трактует nil как
// "стратегия не дала ордер" и продолжает без ошибки.
// HOLD сигналы до builder не доходят, они отфильтрованы выше.
func BuildOrderParams(alert *domain.Alert, cfg domain.StrategyConfig) *domain.OrderParams {
	if alert.Action != domain.ActionBuy && alert.Action != domain.ActionSell {
		return nil
	}

	quantity := alert.Quantity
	if quantity <= 0 {
		quantity = cfg.DefaultQuantity
	}
	if quantity <= 0 {
		quantity = domain.DefaultQuantity
	}

	orderType := cfg.OrderType
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	productType := cfg.ProductType
	if productType == "" {
		productType = domain.ProductIntraday
	}

	params := &domain.OrderParams{
		Symbol:      alert.Symbol,
		Side:        alert.Action,
		Quantity:    quantity,
		OrderType:   orderType,
		ProductType: productType,
	}

	switch orderType {
	case domain.OrderTypeLimit:
		// LIMIT без цены не исполняем: молча дефолтить цену нельзя
		if alert.Price <= 0 {
			return nil
		}
		params.LimitPrice = alert.Price
	case domain.OrderTypeStopLoss:
		if alert.Price <= 0 {
			return nil
		}
		params.StopPrice = alert.Price
	}

	if cfg.StopLossPercent > 0 && alert.Action == domain.ActionBuy && alert.Price > 0 {
		params.StopPrice = alert.Price * (1 - cfg.StopLossPercent/100)
	}

	return params
}
