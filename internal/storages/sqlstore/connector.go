package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Barizhka/magnate-otc/internal/config"
)

func init() {
	// modernc регистрирует драйвер как "sqlite", sqlx знает только "sqlite3"
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Config содержит конфигурацию подключения к SQL хранилищу
type Config struct {
	Driver          string
	Path            string
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

// ConfigFrom переносит настройки базы из конфигурации приложения
func ConfigFrom(db config.DatabaseConfig) *Config {
	return &Config{
		Driver:          db.Driver,
		Path:            db.Path,
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password,
		DBName:          db.DBName,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}
}

// DSN возвращает строку подключения для выбранного драйвера
func (c *Config) DSN() string {
	if c.Driver == config.DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		)
	}
	return "file:" + c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// SQLStorage реализует интерфейс Storage поверх SQLite или PostgreSQL
type SQLStorage struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// New открывает хранилище и создает схему, если ее еще нет
func New(cfg *Config, logger *logrus.Logger) (*SQLStorage, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite допускает одного писателя, все запросы идут через одно соединение
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Successfully connected to %s database", cfg.Driver)

	storage := NewWithDB(db, logger)
	if err := storage.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewWithDB оборачивает уже открытое соединение без инициализации схемы
func NewWithDB(db *sqlx.DB, logger *logrus.Logger) *SQLStorage {
	return &SQLStorage{
		db:     db,
		logger: logger,
	}
}

// schema создает таблицы. Деньги хранятся точной десятичной записью: в SQLite колонкой TEXT,
// потому что NUMERIC там превращает значение в REAL
const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id BIGINT PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	ton_wallet TEXT NOT NULL DEFAULT '',
	card_details TEXT NOT NULL DEFAULT '',
	balance %[1]s NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
	successful_deals BIGINT NOT NULL DEFAULT 0 CHECK (successful_deals >= 0),
	lang TEXT NOT NULL DEFAULT 'ru',
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	web_login TEXT UNIQUE,
	web_password_hash TEXT
);

CREATE TABLE IF NOT EXISTS deals (
	deal_id TEXT PRIMARY KEY,
	amount %[1]s NOT NULL CHECK (CAST(amount AS REAL) > 0),
	description TEXT NOT NULL,
	seller_id BIGINT NOT NULL REFERENCES users(user_id),
	buyer_id BIGINT REFERENCES users(user_id),
	status TEXT NOT NULL DEFAULT 'active',
	payment_method TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'web',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(user_id),
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_seller ON deals(seller_id);
CREATE INDEX IF NOT EXISTS idx_deals_buyer ON deals(buyer_id);
CREATE INDEX IF NOT EXISTS idx_deals_created ON deals(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);
`

// initSchema создает необходимые таблицы, если они не существуют
func (s *SQLStorage) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schema, moneyType(s.db.DriverName()))); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("Database schema initialized")
	return nil
}

// moneyType тип колонки для сумм. NUMERIC(20, 8) вмещает 12 целых и 8 дробных знаков
func moneyType(driver string) string {
	if driver == config.DriverPostgres {
		return "NUMERIC(20, 8)"
	}
	return "TEXT"
}

// Close закрывает соединение с базой данных
func (s *SQLStorage) Close() error {
	if s.db != nil {
		s.logger.Info("Closing database connection")
		return s.db.Close()
	}
	return nil
}

// Ping проверяет соединение с базой данных
func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation распознает нарушение уникальности для обоих драйверов
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}

	return false
}
