package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// clockAt фиксирует часы evaluator на заданном локальном времени
func clockAt(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 2, hour, minute, 0, 0, time.Local)
	}
}

func baseConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		StartTime:       "09:15",
		EndTime:         "15:30",
		MaxPositions:    10,
		MaxPositionSize: 100000,
		DailyLossLimit:  10000,
		DefaultQuantity: 1,
	}
}

func TestEvaluate_SymbolLists(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		blocked    []string
		symbol     string
		wantOK     bool
		wantReason string
	}{
		{"no lists, any symbol", nil, nil, "RELIANCE", true, ""},
		{"blocked symbol", nil, []string{"YESBANK"}, "YESBANK", false, ReasonSymbolBlocked},
		{"blocked list, other symbol", nil, []string{"YESBANK"}, "TCS", true, ""},
		{"allowed list, member", []string{"TCS", "INFY"}, nil, "INFY", true, ""},
		{"allowed list, non-member", []string{"TCS", "INFY"}, nil, "RELIANCE", false, ReasonSymbolNotAllowed},
		{"blocked wins over allowed", []string{"TCS"}, []string{"TCS"}, "TCS", false, ReasonSymbolBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.AllowedSymbols = tt.allowed
			cfg.BlockedSymbols = tt.blocked

			e := NewEvaluatorWithClock(clockAt(10, 0))
			alert := &domain.Alert{Symbol: tt.symbol, Action: domain.ActionBuy, Price: 100, Quantity: 1}

			d := e.Evaluate(alert, cfg, domain.TradingState{})
			if d.Allowed != tt.wantOK {
				t.Errorf("Evaluate() allowed = %v, want %v (reason %q)", d.Allowed, tt.wantOK, d.Reason)
			}
			if !tt.wantOK && d.Reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_TradingHours(t *testing.T) {
	tests := []struct {
		name   string
		hour   int
		minute int
		wantOK bool
	}{
		{"before open", 9, 14, false},
		{"exactly at open", 9, 15, true},
		{"mid-session", 12, 0, true},
		{"exactly at close", 15, 30, true},
		{"after close", 15, 31, false},
		{"late evening", 22, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluatorWithClock(clockAt(tt.hour, tt.minute))
			alert := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 100, Quantity: 1}

			d := e.Evaluate(alert, baseConfig(), domain.TradingState{})
			if d.Allowed != tt.wantOK {
				t.Errorf("Evaluate() at %02d:%02d allowed = %v, want %v", tt.hour, tt.minute, d.Allowed, tt.wantOK)
			}
			if !tt.wantOK && !strings.Contains(d.Reason, ReasonOutsideHours) {
				t.Errorf("Evaluate() reason = %q, want it to contain %q", d.Reason, ReasonOutsideHours)
			}
		})
	}
}

func TestEvaluate_Limits(t *testing.T) {
	tests := []struct {
		name       string
		state      domain.TradingState
		price      float64
		quantity   int
		wantOK     bool
		wantReason string
	}{
		{"all clear", domain.TradingState{OpenPositions: 3}, 100, 10, true, ""},
		{"at max positions", domain.TradingState{OpenPositions: 10}, 100, 1, false, ReasonMaxPositions},
		{"over max positions", domain.TradingState{OpenPositions: 11}, 100, 1, false, ReasonMaxPositions},
		{"one below max positions", domain.TradingState{OpenPositions: 9}, 100, 1, true, ""},
		{"loss exactly at limit", domain.TradingState{TodayRealizedPnL: -10000}, 100, 1, false, ReasonDailyLossLimit},
		{"loss just under limit", domain.TradingState{TodayRealizedPnL: -9999.99}, 100, 1, true, ""},
		{"profit day", domain.TradingState{TodayRealizedPnL: 5000}, 100, 1, true, ""},
		{"order value exactly at cap", domain.TradingState{}, 1000, 100, true, ""},
		{"order value over cap", domain.TradingState{}, 1000.01, 100, false, ReasonPositionSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluatorWithClock(clockAt(11, 0))
			alert := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: tt.price, Quantity: tt.quantity}

			d := e.Evaluate(alert, baseConfig(), tt.state)
			if d.Allowed != tt.wantOK {
				t.Errorf("Evaluate() allowed = %v, want %v (reason %q)", d.Allowed, tt.wantOK, d.Reason)
			}
			if !tt.wantOK && d.Reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_DefaultQuantityUsedForSizing(t *testing.T) {
	cfg := baseConfig()
	cfg.DefaultQuantity = 200
	cfg.MaxPositionSize = 10000

	e := NewEvaluatorWithClock(clockAt(11, 0))
	// Количество не задано в сигнале: для оценки размера берется дефолт
	alert := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 100, Quantity: 0}

	d := e.Evaluate(alert, cfg, domain.TradingState{})
	if d.Allowed {
		t.Fatalf("Evaluate() allowed = true, want rejection by %q", ReasonPositionSize)
	}
	if d.Reason != ReasonPositionSize {
		t.Errorf("Evaluate() reason = %q, want %q", d.Reason, ReasonPositionSize)
	}
}

func TestEvaluate_BadTimeWindowRejects(t *testing.T) {
	cfg := baseConfig()
	cfg.StartTime = "not-a-time"

	e := NewEvaluatorWithClock(clockAt(11, 0))
	alert := &domain.Alert{Symbol: "TCS", Action: domain.ActionBuy, Price: 100, Quantity: 1}

	if d := e.Evaluate(alert, cfg, domain.TradingState{}); d.Allowed {
		t.Error("Evaluate() allowed = true with unparseable trading window, want rejection")
	}
}
