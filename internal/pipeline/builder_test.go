package pipeline

import (
	"testing"

	"github.com/udihermony/algo-trader/internal/domain"
)

func TestBuildOrderParams_Market(t *testing.T) {
	tests := []struct {
		name     string
		alert    domain.Alert
		cfg      domain.StrategyConfig
		wantNil  bool
		wantQty  int
		wantSide string
	}{
		{
			name:     "buy with explicit quantity",
			alert:    domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 3500, Quantity: 5},
			cfg:      domain.StrategyConfig{},
			wantQty:  5,
			wantSide: domain.SideBuy,
		},
		{
			name:     "sell falls back to strategy default",
			alert:    domain.Alert{Symbol: "TCS", Action: domain.ActionSell, Price: 3500},
			cfg:      domain.StrategyConfig{DefaultQuantity: 3},
			wantQty:  3,
			wantSide: domain.SideSell,
		},
		{
			name:     "no quantity anywhere falls back to 1",
			alert:    domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 3500},
			cfg:      domain.StrategyConfig{},
			wantQty:  domain.DefaultQuantity,
			wantSide: domain.SideBuy,
		},
		{
			name:    "hold produces nothing",
			alert:   domain.Alert{Symbol: "TCS", Action: domain.ActionHold, Price: 3500},
			cfg:     domain.StrategyConfig{},
			wantNil: true,
		},
		{
			name:    "unknown action produces nothing",
			alert:   domain.Alert{Symbol: "TCS", Action: "SHORT", Price: 3500},
			cfg:     domain.StrategyConfig{},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := BuildOrderParams(&tt.alert, tt.cfg)
			if tt.wantNil {
				if params != nil {
					t.Fatalf("BuildOrderParams() = %+v, want nil", params)
				}
				return
			}
			if params == nil {
				t.Fatal("BuildOrderParams() = nil, want params")
			}
			if params.Quantity != tt.wantQty {
				t.Errorf("quantity = %d, want %d", params.Quantity, tt.wantQty)
			}
			if params.Side != tt.wantSide {
				t.Errorf("side = %q, want %q", params.Side, tt.wantSide)
			}
			if params.OrderType != domain.OrderTypeMarket {
				t.Errorf("order type = %q, want %q", params.OrderType, domain.OrderTypeMarket)
			}
			if params.ProductType != domain.ProductIntraday {
				t.Errorf("product type = %q, want %q", params.ProductType, domain.ProductIntraday)
			}
		})
	}
}

func TestBuildOrderParams_LimitRequiresPrice(t *testing.T) {
	cfg := domain.StrategyConfig{OrderType: domain.OrderTypeLimit}

	withPrice := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 3500, Quantity: 1}
	params := BuildOrderParams(withPrice, cfg)
	if params == nil {
		t.Fatal("BuildOrderParams() = nil for LIMIT with price")
	}
	if params.LimitPrice != 3500 {
		t.Errorf("limit price = %v, want 3500", params.LimitPrice)
	}

	noPrice := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Quantity: 1}
	if params := BuildOrderParams(noPrice, cfg); params != nil {
		t.Errorf("BuildOrderParams() = %+v for LIMIT without price, want nil", params)
	}
}

func TestBuildOrderParams_StopLossRequiresPrice(t *testing.T) {
	cfg := domain.StrategyConfig{OrderType: domain.OrderTypeStopLoss}

	withPrice := &domain.Alert{Symbol: "TCS", Action: domain.ActionSell, Price: 3400, Quantity: 2}
	params := BuildOrderParams(withPrice, cfg)
	if params == nil {
		t.Fatal("BuildOrderParams() = nil for STOP_LOSS with price")
	}
	if params.StopPrice != 3400 {
		t.Errorf("stop price = %v, want 3400", params.StopPrice)
	}

	noPrice := &domain.Alert{Symbol: "TCS", Action: domain.ActionSell, Quantity: 2}
	if params := BuildOrderParams(noPrice, cfg); params != nil {
		t.Errorf("BuildOrderParams() = %+v for STOP_LOSS without price, want nil", params)
	}
}

func TestBuildOrderParams_StopLossPercentOnBuy(t *testing.T) {
	cfg := domain.StrategyConfig{StopLossPercent: 2}

	buy := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 1000, Quantity: 1}
	params := BuildOrderParams(buy, cfg)
	if params == nil {
		t.Fatal("BuildOrderParams() = nil")
	}
	if params.StopPrice != 980 {
		t.Errorf("stop price = %v, want 980", params.StopPrice)
	}

	// Для продажи процентный стоп не выставляется
	sell := &domain.Alert{Symbol: "TCS", Action: domain.ActionSell, Price: 1000, Quantity: 1}
	params = BuildOrderParams(sell, cfg)
	if params == nil {
		t.Fatal("BuildOrderParams() = nil")
	}
	if params.StopPrice != 0 {
		t.Errorf("stop price = %v for sell, want 0", params.StopPrice)
	}
}
