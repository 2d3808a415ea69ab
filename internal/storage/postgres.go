package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/internal/storage/repository"
	_ "github.com/lib/pq"
)

// Переопределяем типы из domain для удобства вызывающих
type (
	Alert        = domain.Alert
	Strategy     = domain.Strategy
	Order        = domain.Order
	Position     = domain.Position
	Trade        = domain.Trade
	UserSettings = domain.UserSettings
)

// PostgresStorage является фасадом для работы с PostgreSQL через репозитории
type PostgresStorage struct {
	db         *sql.DB
	alerts     *repository.AlertRepository
	strategies *repository.StrategyRepository
	orders     *repository.OrderRepository
	positions  *repository.PositionRepository
	trades     *repository.TradeRepository
	settings   *repository.SettingsRepository
}

func NewPostgresStorage(host string, port int, user, password, dbname, sslmode string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStorage, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	storage := &PostgresStorage{
		db:         db,
		alerts:     repository.NewAlertRepository(db),
		strategies: repository.NewStrategyRepository(db),
		orders:     repository.NewOrderRepository(db),
		positions:  repository.NewPositionRepository(db),
		trades:     repository.NewTradeRepository(db),
		settings:   repository.NewSettingsRepository(db),
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			symbol VARCHAR(50) NOT NULL,
			action VARCHAR(10) NOT NULL,
			price DECIMAL(20, 4) NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 0,
			raw_payload TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			message TEXT NOT NULL DEFAULT '',
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name VARCHAR(100) NOT NULL,
			config JSONB NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			strategy_id BIGINT REFERENCES strategies(id),
			alert_id BIGINT REFERENCES alerts(id),
			symbol VARCHAR(50) NOT NULL,
			side VARCHAR(10) NOT NULL,
			quantity INTEGER NOT NULL,
			order_type VARCHAR(20) NOT NULL DEFAULT 'MARKET',
			product_type VARCHAR(20) NOT NULL DEFAULT 'INTRADAY',
			price DECIMAL(20, 4) NOT NULL DEFAULT 0,
			stop_price DECIMAL(20, 4) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			broker_order_id VARCHAR(100) NOT NULL DEFAULT '',
			broker_response TEXT NOT NULL DEFAULT '',
			filled_qty INTEGER NOT NULL DEFAULT 0,
			charges DECIMAL(20, 4) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			filled_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			symbol VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			avg_price DECIMAL(20, 4) NOT NULL DEFAULT 0,
			current_price DECIMAL(20, 4) NOT NULL DEFAULT 0,
			unrealized_pnl DECIMAL(20, 4) NOT NULL DEFAULT 0,
			realized_pnl DECIMAL(20, 4) NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			symbol VARCHAR(50) NOT NULL,
			side VARCHAR(10) NOT NULL,
			quantity INTEGER NOT NULL,
			price DECIMAL(20, 4) NOT NULL,
			charges DECIMAL(20, 4) NOT NULL DEFAULT 0,
			realized_pnl DECIMAL(20, 4) NOT NULL DEFAULT 0,
			executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id BIGINT PRIMARY KEY,
			access_token_enc TEXT NOT NULL DEFAULT '',
			refresh_token_enc TEXT NOT NULL DEFAULT '',
			token_expiry TIMESTAMPTZ,
			pin_enc TEXT NOT NULL DEFAULT '',
			auto_execute_enabled BOOLEAN NOT NULL DEFAULT true,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// Уникальность активной позиции на (user, symbol) — точка контроля
		// конкуренции для всего pipeline
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_user_symbol_active
			ON positions(user_id, symbol) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user_status ON alerts(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_user_active ON strategies(user_id, active)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_executed_at ON trades(user_id, executed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_order ON trades(order_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// ==================== ALERTS ====================

func (s *PostgresStorage) SaveAlert(alert *Alert) error {
	return s.alerts.Save(alert)
}

func (s *PostgresStorage) GetAlert(id int64) (*Alert, error) {
	return s.alerts.Get(id)
}

func (s *PostgresStorage) GetRecentAlerts(userID int64, limit int) ([]Alert, error) {
	return s.alerts.GetRecent(userID, limit)
}

func (s *PostgresStorage) UpdateAlertStatus(id int64, status, message string, processedAt time.Time) error {
	return s.alerts.UpdateStatus(id, status, message, processedAt)
}

// ==================== STRATEGIES ====================

func (s *PostgresStorage) SaveStrategy(strategy *Strategy) error {
	return s.strategies.Save(strategy)
}

func (s *PostgresStorage) GetStrategy(id int64) (*Strategy, error) {
	return s.strategies.Get(id)
}

func (s *PostgresStorage) GetActiveStrategies(userID int64) ([]Strategy, error) {
	return s.strategies.GetActive(userID)
}

func (s *PostgresStorage) GetAllStrategies(userID int64) ([]Strategy, error) {
	return s.strategies.GetAll(userID)
}

func (s *PostgresStorage) SetStrategyActive(id int64, active bool) error {
	return s.strategies.SetActive(id, active)
}

// ==================== ORDERS ====================

func (s *PostgresStorage) SaveOrder(order *Order) error {
	return s.orders.Save(order)
}

func (s *PostgresStorage) GetOrder(id int64) (*Order, error) {
	return s.orders.Get(id)
}

func (s *PostgresStorage) GetRecentOrders(userID int64, limit int) ([]Order, error) {
	return s.orders.GetRecent(userID, limit)
}

func (s *PostgresStorage) GetOpenOrdersWithBrokerID() ([]Order, error) {
	return s.orders.GetOpenWithBrokerID()
}

func (s *PostgresStorage) MarkOrderSubmitted(id int64, brokerOrderID, brokerResponse string) error {
	return s.orders.MarkSubmitted(id, brokerOrderID, brokerResponse)
}

func (s *PostgresStorage) UpdateOrderStatus(id int64, status string, filledQty int, charges float64, brokerResponse string) error {
	return s.orders.UpdateStatus(id, status, filledQty, charges, brokerResponse)
}

// ==================== POSITIONS ====================

func (s *PostgresStorage) GetActivePosition(userID int64, symbol string) (*Position, error) {
	return s.positions.GetActive(userID, symbol)
}

func (s *PostgresStorage) GetAllActivePositions(userID int64) ([]Position, error) {
	return s.positions.GetAllActive(userID)
}

func (s *PostgresStorage) CountActivePositions(userID int64) (int, error) {
	return s.positions.CountActive(userID)
}

func (s *PostgresStorage) UpsertPosition(position *Position) error {
	return s.positions.Upsert(position)
}

// ==================== TRADES ====================

func (s *PostgresStorage) SaveTrade(trade *Trade) error {
	return s.trades.Save(trade)
}

func (s *PostgresStorage) GetTradesByOrder(orderID int64) ([]Trade, error) {
	return s.trades.GetByOrder(orderID)
}

func (s *PostgresStorage) GetRecentTrades(userID int64, limit int) ([]Trade, error) {
	return s.trades.GetRecent(userID, limit)
}

func (s *PostgresStorage) SumRealizedPnLSince(userID int64, since time.Time) (float64, error) {
	return s.trades.SumRealizedPnLSince(userID, since)
}

// ==================== FILLS ====================

// ApplyFill атомарно фиксирует исполнение: сделка, позиция и статус ордера
// пишутся одной транзакцией. Повторная сверка после сбоя не задваивает
// ни сделку, ни количество в позиции.
func (s *PostgresStorage) ApplyFill(trade *Trade, position *Position, orderID int64, status string, filledQty int, charges float64, brokerResponse string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.trades.WithTx(tx).Save(trade); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	if err := s.positions.WithTx(tx).Upsert(position); err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	if err := s.orders.WithTx(tx).UpdateStatus(orderID, status, filledQty, charges, brokerResponse); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== SETTINGS ====================

func (s *PostgresStorage) GetUserSettings(userID int64) (*UserSettings, error) {
	return s.settings.Get(userID)
}

func (s *PostgresStorage) SaveUserSettings(settings *UserSettings) error {
	return s.settings.Save(settings)
}

func (s *PostgresStorage) UpdateUserTokens(userID int64, accessTokenEnc, refreshTokenEnc string, expiry time.Time) error {
	return s.settings.UpdateTokens(userID, accessTokenEnc, refreshTokenEnc, expiry)
}

// Прямой доступ к репозиториям, для компонентов которые работают
// с интерфейсами domain
func (s *PostgresStorage) Alerts() domain.AlertRepository        { return s.alerts }
func (s *PostgresStorage) Strategies() domain.StrategyRepository { return s.strategies }
func (s *PostgresStorage) Orders() domain.OrderRepository        { return s.orders }
func (s *PostgresStorage) Positions() domain.PositionRepository  { return s.positions }
func (s *PostgresStorage) Trades() domain.TradeRepository        { return s.trades }
func (s *PostgresStorage) Settings() domain.SettingsRepository   { return s.settings }

// Close закрывает соединение с базой данных
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// DB возвращает указатель на *sql.DB
func (s *PostgresStorage) DB() *sql.DB {
	return s.db
}
