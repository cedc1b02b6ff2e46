package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Barizhka/magnate-otc/internal/api"
	"github.com/Barizhka/magnate-otc/internal/api/middleware"
	"github.com/Barizhka/magnate-otc/internal/config"
	"github.com/Barizhka/magnate-otc/internal/kafka"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/service"
	"github.com/Barizhka/magnate-otc/internal/storages/sqlstore"
)

// @title Magnate OTC API
// @version 1.0
// @description Web gateway of the Magnate OTC marketplace: login, deals, tickets and profile
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5000
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Парсинг флагов командной строки
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Валидация конфигурации
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := logger.New(cfg.Logger.Level)
	log.Info("Starting magnate-otc server...")
	log.Infof("Configuration loaded from: %s", *configPath)

	// Подключение к базе данных
	storage, err := sqlstore.New(sqlstore.ConfigFrom(cfg.Database), log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer storage.Close()

	// Проверка подключения к БД
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	cancel()
	log.Infof("Database connection established (driver: %s)", cfg.Database.Driver)

	// Публикация событий в Kafka включается списком брокеров
	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kafkaProducer.Close()
		events = kafkaProducer
	} else {
		log.Info("KAFKA_BROKERS is empty, event publishing disabled")
	}

	// Создание JWT middleware
	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration, log)

	// Создание сервисного слоя
	otcService := service.NewOTCService(storage, jwtMiddleware, events, log)
	log.Info("OTC service initialized")

	// Настройка роутера
	router := api.SetupRouter(otcService, jwtMiddleware, log, cfg.Server.GinMode, cfg.Server.AllowOrigins)

	// Создание HTTP сервера
	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("HTTP server is listening on port %s", cfg.Server.HTTPPort)
		log.Infof("Swagger documentation available at: http://localhost:%s/swagger/index.html", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-done
	log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
