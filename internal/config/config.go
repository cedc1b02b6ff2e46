package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Поддерживаемые драйверы хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Kafka      KafkaConfig
	MongoDB    MongoDBConfig
	Processing ProcessingConfig
	Telegram   TelegramConfig
	Logger     LoggerConfig
}

// ServerConfig содержит конфигурацию HTTP сервера
type ServerConfig struct {
	HTTPPort     string
	GinMode      string
	AllowOrigins []string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
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

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// KafkaConfig содержит конфигурацию Kafka. Пустой список брокеров отключает публикацию событий.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// MongoDBConfig содержит конфигурацию архива событий
type MongoDBConfig struct {
	URI         string
	Database    string
	Collection  string
	Timeout     time.Duration
	MaxPoolSize uint64
	MinPoolSize uint64
}

// ProcessingConfig содержит конфигурацию обработки событий
type ProcessingConfig struct {
	BatchSize         int
	Workers           int
	FlushInterval     time.Duration
	MaxProcessingTime time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// TelegramConfig содержит настройки уведомлений в Telegram. Пустой токен их отключает.
type TelegramConfig struct {
	BotToken string
}

// LoggerConfig содержит конфигурацию логгера
type LoggerConfig struct {
	Level string
}

// Load загружает конфигурацию из файла окружения и переменных окружения
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}

	// Server. PORT имеет приоритет, как в исходном деплое
	cfg.Server.HTTPPort = getEnv("PORT", getEnv("HTTP_PORT", DefaultHTTPPort))
	cfg.Server.GinMode = getEnv("GIN_MODE", DefaultGinMode)
	cfg.Server.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", DefaultAllowOrigins))

	// Database
	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", DefaultDBDriver))
	cfg.Database.Path = getEnv("DB_PATH", DefaultDBPath)
	cfg.Database.Host = getEnv("DB_HOST", DefaultDBHost)
	cfg.Database.Port = getEnvInt("DB_PORT", DefaultDBPort)
	cfg.Database.User = getEnv("DB_USER", DefaultDBUser)
	cfg.Database.Password = getEnv("DB_PASSWORD", DefaultDBPassword)
	cfg.Database.DBName = getEnv("DB_NAME", DefaultDBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", DefaultDBSSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", DefaultDBMaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", DefaultDBMaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", DefaultDBConnMaxLifetime)

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWT.Expiration = getEnvDuration("JWT_EXPIRATION", DefaultJWTExpiration)

	// Kafka
	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", DefaultKafkaBrokers))
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", DefaultKafkaTopic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", DefaultKafkaGroupID)
	cfg.Kafka.MinBytes = getEnvInt("KAFKA_MIN_BYTES", DefaultKafkaMinBytes)
	cfg.Kafka.MaxBytes = getEnvInt("KAFKA_MAX_BYTES", DefaultKafkaMaxBytes)
	cfg.Kafka.MaxWait = getEnvDuration("KAFKA_MAX_WAIT", DefaultKafkaMaxWait)

	// MongoDB
	cfg.MongoDB.URI = getEnv("MONGO_URI", DefaultMongoURI)
	cfg.MongoDB.Database = getEnv("MONGO_DATABASE", DefaultMongoDatabase)
	cfg.MongoDB.Collection = getEnv("MONGO_COLLECTION", DefaultMongoCollection)
	cfg.MongoDB.Timeout = getEnvDuration("MONGO_TIMEOUT", DefaultMongoTimeout)
	cfg.MongoDB.MaxPoolSize = uint64(getEnvInt("MONGO_MAX_POOL_SIZE", DefaultMongoMaxPoolSize))
	cfg.MongoDB.MinPoolSize = uint64(getEnvInt("MONGO_MIN_POOL_SIZE", DefaultMongoMinPoolSize))

	// Processing
	cfg.Processing.BatchSize = getEnvInt("BATCH_SIZE", DefaultBatchSize)
	cfg.Processing.Workers = getEnvInt("WORKERS", DefaultWorkers)
	cfg.Processing.FlushInterval = getEnvDuration("FLUSH_INTERVAL", DefaultFlushInterval)
	cfg.Processing.MaxProcessingTime = getEnvDuration("MAX_PROCESSING_TIME", DefaultMaxProcessingTime)
	cfg.Processing.RetryAttempts = getEnvInt("RETRY_ATTEMPTS", DefaultRetryAttempts)
	cfg.Processing.RetryDelay = getEnvDuration("RETRY_DELAY", DefaultRetryDelay)

	// Telegram
	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")

	// Logger
	cfg.Logger.Level = getEnv("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения типа duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// splitList разбивает список через запятую, отбрасывая пустые элементы
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate проверяет корректность конфигурации сервера
func (c *Config) Validate() error {
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.Database.Driver)
	}

	if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive")
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}

// ValidateNotifier проверяет конфигурацию сервиса архивации событий
func (c *Config) ValidateNotifier() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Kafka.Topic == "" || c.Kafka.GroupID == "" {
		return fmt.Errorf("KAFKA_TOPIC and KAFKA_GROUP_ID are required")
	}

	if c.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.Processing.BatchSize <= 0 || c.Processing.Workers <= 0 {
		return fmt.Errorf("BATCH_SIZE and WORKERS must be positive")
	}

	if c.Processing.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive")
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}
