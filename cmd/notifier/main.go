package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/config"
	"github.com/Barizhka/magnate-otc/internal/kafka"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/storages"
	"github.com/Barizhka/magnate-otc/internal/storages/mongodb"
	"github.com/Barizhka/magnate-otc/internal/telegram"
	"github.com/Barizhka/magnate-otc/pkg"
)

// notifyingArchive сохраняет пакет в MongoDB и уведомляет пользователей о новых событиях.
// Повторно доставленные события уже в архиве, уведомление по ним не отправляется.
type notifyingArchive struct {
	*mongodb.MongoStorage
	notifier *telegram.Notifier
}

func (a *notifyingArchive) SaveEventBatch(ctx context.Context, events []storages.Event) error {
	inserted, err := a.MongoStorage.InsertEventBatch(ctx, events)
	if err != nil {
		return err
	}
	if a.notifier != nil && len(inserted) > 0 {
		a.notifier.NotifyBatch(ctx, inserted)
	}
	return nil
}

func main() {
	// Парсинг флагов командной строки
	configPath := flag.String("c", "", "Path to config file")
	historyUser := flag.Int64("history", 0, "Print archived events of the user and exit")
	historyLimit := flag.Int("limit", 20, "Number of events printed with -history")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateNotifier(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)
	log.Info("Starting magnate-otc notifier...")

	// Подключение к MongoDB
	storage, err := mongodb.New(&mongodb.Config{
		URI:         cfg.MongoDB.URI,
		Database:    cfg.MongoDB.Database,
		Collection:  cfg.MongoDB.Collection,
		Timeout:     cfg.MongoDB.Timeout,
		MaxPoolSize: cfg.MongoDB.MaxPoolSize,
		MinPoolSize: cfg.MongoDB.MinPoolSize,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		storage.Close(ctx)
	}()
	log.Info("MongoDB connection established")

	if *historyUser > 0 {
		printHistory(log, storage, *historyUser, *historyLimit)
		return
	}

	archive := &notifyingArchive{MongoStorage: storage}
	if cfg.Telegram.BotToken != "" {
		notifier, err := telegram.New(cfg.Telegram.BotToken, log)
		if err != nil {
			log.Warnf("Telegram notifications disabled: %v", err)
		} else {
			archive.notifier = notifier
		}
	}

	consumer := kafka.NewConsumer(&kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		GroupID:       cfg.Kafka.GroupID,
		MinBytes:      cfg.Kafka.MinBytes,
		MaxBytes:      cfg.Kafka.MaxBytes,
		MaxWait:       cfg.Kafka.MaxWait,
		BatchSize:     cfg.Processing.BatchSize,
		Workers:       cfg.Processing.Workers,
		FlushInterval: cfg.Processing.FlushInterval,
		FlushTimeout:  cfg.Processing.MaxProcessingTime,
		RetryAttempts: cfg.Processing.RetryAttempts,
		RetryDelay:    cfg.Processing.RetryDelay,
	}, archive, log)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start(ctx)
	}()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				printStatistics(log, consumer, storage)
			}
		}
	}()

	log.Info("Service is running. Press Ctrl+C to stop...")

	select {
	case <-sigChan:
		log.Info("Received shutdown signal...")
	case err := <-consumerErr:
		if err != nil {
			log.Errorf("Consumer error: %v", err)
		}
	}

	log.Info("Shutting down service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Processing.MaxProcessingTime)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded, forcing exit")
	case err := <-consumerErr:
		if err != nil && err != context.Canceled {
			log.Errorf("Consumer shutdown error: %v", err)
		}
	}

	printStatistics(log, consumer, storage)
	log.Info("Service stopped gracefully")
}

// printStatistics выводит статистику консьюмера и архива
func printStatistics(log *logrus.Logger, consumer *kafka.Consumer, storage *mongodb.MongoStorage) {
	stats := consumer.GetStatistics()

	log.Infof("Consumer Statistics: Processed=%d, Failed=%d, Rate=%s, Uptime=%s",
		stats.MessagesProcessed,
		stats.MessagesFailed,
		pkg.FormatRate(stats.MessagesProcessed, stats.Uptime),
		pkg.FormatDuration(stats.Uptime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	archiveStats, err := storage.GetStatistics(ctx)
	if err != nil {
		log.Warnf("Failed to get archive statistics: %v", err)
		return
	}

	log.Infof("Archive Statistics: Total=%d, Deals=%d, Tickets=%d, DealAmount=%.2f",
		archiveStats.TotalEvents,
		archiveStats.DealsCreated,
		archiveStats.TicketsCreated,
		archiveStats.TotalDealAmount)
}

// printHistory выводит последние события пользователя из архива
func printHistory(log *logrus.Logger, storage *mongodb.MongoStorage, userID int64, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := storage.GetEventsByUser(ctx, userID, limit)
	if err != nil {
		log.Errorf("Failed to load history: %v", err)
		return
	}

	if len(events) == 0 {
		fmt.Printf("No events for user %d\n", userID)
		return
	}

	for _, event := range events {
		fmt.Printf("%s  %-15s %s %s %s\n",
			event.Timestamp.Format(time.RFC3339), event.Type, event.EntityID, event.Amount, event.PaymentMethod)
	}
}
