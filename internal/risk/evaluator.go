package risk

import (
	"fmt"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
)

// Причины отказа. Тексты попадают в лог и в message сигнала.
const (
	ReasonSymbolBlocked    = "symbol blocked"
	ReasonSymbolNotAllowed = "symbol not in allowed list"
	ReasonOutsideHours     = "outside trading hours"
	ReasonMaxPositions     = "max positions"
	ReasonDailyLossLimit   = "daily loss limit"
	ReasonPositionSize     = "position size exceeds limit"
)

// Decision представляет результат проверки допустимости.
// Отказ — нормальный исход, не ошибка.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func rejected(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluator применяет правила допуска к паре (сигнал, стратегия).
// Чистые функции без побочных эффектов: все данные приходят аргументами.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator создает evaluator с системными часами
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewEvaluatorWithClock создает evaluator с внешними часами (для тестов)
func NewEvaluatorWithClock(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// CheckSymbolAndHours выполняет дешевые проверки (шаги 1-3), не требующие
// обращения к хранилищу: блок-лист, allow-лист, торговое окно.
func (e *Evaluator) CheckSymbolAndHours(alert *domain.Alert, cfg domain.StrategyConfig) Decision {
	for _, blocked := range cfg.BlockedSymbols {
		if blocked == alert.Symbol {
			return rejected(ReasonSymbolBlocked)
		}
	}

	if len(cfg.AllowedSymbols) > 0 {
		found := false
		for _, s := range cfg.AllowedSymbols {
			if s == alert.Symbol {
				found = true
				break
			}
		}
		if !found {
			return rejected(ReasonSymbolNotAllowed)
		}
	}

	if !e.withinTradingHours(cfg) {
		return rejected(fmt.Sprintf("%s (%s-%s)", ReasonOutsideHours, cfg.StartTime, cfg.EndTime))
	}

	return allowed()
}

// Evaluate выполняет полную проверку допустимости в фиксированном порядке,
// первая сработавшая проверка побеждает. Границы окон и лимитов включающие.
func (e *Evaluator) Evaluate(alert *domain.Alert, cfg domain.StrategyConfig, state domain.TradingState) Decision {
	if d := e.CheckSymbolAndHours(alert, cfg); !d.Allowed {
		return d
	}

	if state.OpenPositions >= cfg.MaxPositions {
		return rejected(ReasonMaxPositions)
	}

	if state.TodayRealizedPnL <= -cfg.DailyLossLimit {
		return rejected(ReasonDailyLossLimit)
	}

	quantity := alert.Quantity
	if quantity == 0 {
		quantity = cfg.DefaultQuantity
	}
	if alert.Price*float64(quantity) > cfg.MaxPositionSize {
		return rejected(ReasonPositionSize)
	}

	return allowed()
}

// withinTradingHours проверяет, что локальное время попадает в окно
// [StartTime, EndTime] включительно. Окно задано как "HH:MM".
func (e *Evaluator) withinTradingHours(cfg domain.StrategyConfig) bool {
	start, err := parseClock(cfg.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(cfg.EndTime)
	if err != nil {
		return false
	}

	now := e.now()
	current := now.Hour()*60 + now.Minute()

	return current >= start && current <= end
}

// parseClock переводит "HH:MM" в минуты от полуночи
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: bad time %q", domain.ErrInvalidInput, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad time %q", domain.ErrInvalidInput, s)
	}
	return h*60 + m, nil
}
