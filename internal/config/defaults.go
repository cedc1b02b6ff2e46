package config

import "time"

// Server defaults
const (
	DefaultHTTPPort     = "5000"
	DefaultGinMode      = "release"
	DefaultAllowOrigins = "*"
	DefaultLogLevel     = "info"
)

// Database defaults
const (
	DefaultDBDriver          = DriverSQLite
	DefaultDBPath            = "magnate_otc.db"
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "otc_user"
	DefaultDBPassword        = "otc_password"
	DefaultDBName            = "otc_db"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 25
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 5 * time.Minute
)

// JWT defaults
const (
	DefaultJWTSecret     = "change-me-in-production"
	DefaultJWTExpiration = 24 * time.Hour
)

// Kafka defaults
const (
	DefaultKafkaBrokers  = ""
	DefaultKafkaTopic    = "otc-events"
	DefaultKafkaGroupID  = "otc-notifier-group"
	DefaultKafkaMinBytes = 1
	DefaultKafkaMaxBytes = 10485760 // 10MB
	DefaultKafkaMaxWait  = 500 * time.Millisecond
)

// MongoDB defaults
const (
	DefaultMongoURI         = "mongodb://localhost:27017"
	DefaultMongoDatabase    = "otc_events"
	DefaultMongoCollection  = "deal_events"
	DefaultMongoTimeout     = 10 * time.Second
	DefaultMongoMaxPoolSize = 100
	DefaultMongoMinPoolSize = 10
)

// Processing defaults
const (
	DefaultBatchSize         = 100
	DefaultWorkers           = 4
	DefaultFlushInterval     = 5 * time.Second
	DefaultMaxProcessingTime = 30 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryDelay        = 1 * time.Second
)
