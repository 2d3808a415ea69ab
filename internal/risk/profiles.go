package risk

import (
	"fmt"
	"os"

	"github.com/udihermony/algo-trader/internal/domain"
	"gopkg.in/yaml.v3"
)

// Profile представляет именованный набор дефолтов риск-параметров
type Profile struct {
	DefaultQuantity int     `yaml:"default_quantity"`
	OrderType       string  `yaml:"order_type"`
	ProductType     string  `yaml:"product_type"`
	StartTime       string  `yaml:"start_time"`
	EndTime         string  `yaml:"end_time"`
	MaxPositions    int     `yaml:"max_positions"`
	MaxPositionSize float64 `yaml:"max_position_size"`
	DailyLossLimit  float64 `yaml:"daily_loss_limit"`
}

// BuiltinProfile возвращает встроенный профиль со значениями из спецификации
// продукта. Используется когда YAML файл недоступен.
func BuiltinProfile() Profile {
	return Profile{
		DefaultQuantity: domain.DefaultQuantity,
		OrderType:       domain.OrderTypeMarket,
		ProductType:     domain.ProductIntraday,
		StartTime:       domain.DefaultStartTime,
		EndTime:         domain.DefaultEndTime,
		MaxPositions:    domain.DefaultMaxPositions,
		MaxPositionSize: domain.DefaultMaxPositionSize,
		DailyLossLimit:  domain.DefaultDailyLossLimit,
	}
}

// LoadProfile загружает профиль из YAML файла
func LoadProfile(path, name string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}

	var config struct {
		RiskProfiles map[string]Profile `yaml:"risk_profiles"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Profile{}, err
	}

	profile, ok := config.RiskProfiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("risk profile %s not found in %s", name, path)
	}

	return merge(profile, BuiltinProfile()), nil
}

// ApplyDefaults дополняет конфигурацию стратегии значениями профиля.
// Вызывается один раз при загрузке стратегии, pipeline получает уже
// полностью заполненную конфигурацию.
func ApplyDefaults(cfg domain.StrategyConfig, profile Profile) domain.StrategyConfig {
	if cfg.DefaultQuantity <= 0 {
		cfg.DefaultQuantity = profile.DefaultQuantity
	}
	if cfg.OrderType == "" {
		cfg.OrderType = profile.OrderType
	}
	if cfg.ProductType == "" {
		cfg.ProductType = profile.ProductType
	}
	if cfg.StartTime == "" {
		cfg.StartTime = profile.StartTime
	}
	if cfg.EndTime == "" {
		cfg.EndTime = profile.EndTime
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = profile.MaxPositions
	}
	if cfg.MaxPositionSize <= 0 {
		cfg.MaxPositionSize = profile.MaxPositionSize
	}
	if cfg.DailyLossLimit <= 0 {
		cfg.DailyLossLimit = profile.DailyLossLimit
	}
	return cfg
}

// merge заполняет пустые поля профиля fallback значениями
func merge(p, fallback Profile) Profile {
	if p.DefaultQuantity <= 0 {
		p.DefaultQuantity = fallback.DefaultQuantity
	}
	if p.OrderType == "" {
		p.OrderType = fallback.OrderType
	}
	if p.ProductType == "" {
		p.ProductType = fallback.ProductType
	}
	if p.StartTime == "" {
		p.StartTime = fallback.StartTime
	}
	if p.EndTime == "" {
		p.EndTime = fallback.EndTime
	}
	if p.MaxPositions <= 0 {
		p.MaxPositions = fallback.MaxPositions
	}
	if p.MaxPositionSize <= 0 {
		p.MaxPositionSize = fallback.MaxPositionSize
	}
	if p.DailyLossLimit <= 0 {
		p.DailyLossLimit = fallback.DailyLossLimit
	}
	return p
}
