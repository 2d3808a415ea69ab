package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Broker     BrokerConfig
	Risk       RiskConfig
	Reconciler ReconcilerConfig
	Telegram   TelegramConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type BrokerConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64
	CredentialsKey string // 32 байта для AES-256-GCM, hex
}

type RiskConfig struct {
	Profile      string
	ProfilesPath string
}

type ReconcilerConfig struct {
	Interval time.Duration
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

type LogConfig struct {
	Level string
	File  string
}

// Load загружает конфигурацию из .env файла
func Load() (*Config, error) {
	// Загружаем .env файл (если есть)
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	serverPort, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	brokerTimeout, err := time.ParseDuration(getEnv("BROKER_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROKER_TIMEOUT: %w", err)
	}

	brokerRate, err := strconv.ParseFloat(getEnv("BROKER_RATE_LIMIT", "8"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid BROKER_RATE_LIMIT: %w", err)
	}

	reconcileInterval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}

	chatID, err := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "algo_trader"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
		},
		Broker: BrokerConfig{
			BaseURL:        getEnv("BROKER_BASE_URL", "https://api-t1.fyers.in/api/v3"),
			RequestTimeout: brokerTimeout,
			RatePerSecond:  brokerRate,
			CredentialsKey: getEnv("CREDENTIALS_KEY", ""),
		},
		Risk: RiskConfig{
			Profile:      getEnv("RISK_PROFILE", "moderate"),
			ProfilesPath: getEnv("RISK_PROFILES_PATH", "configs/risk_profiles.yaml"),
		},
		Reconciler: ReconcilerConfig{
			Interval: reconcileInterval,
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   chatID,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate проверяет обязательные поля конфигурации
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Broker.CredentialsKey == "" {
		return fmt.Errorf("CREDENTIALS_KEY is required")
	}
	if len(c.Broker.CredentialsKey) != 64 {
		return fmt.Errorf("CREDENTIALS_KEY must be 32 bytes hex-encoded")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
