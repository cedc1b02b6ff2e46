package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// messageReader часть kafka.Reader, нужная консьюмеру
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventArchive хранилище, куда консьюмер складывает события
type EventArchive interface {
	SaveEventBatch(ctx context.Context, events []storages.Event) error
}

// Consumer Kafka consumer для событий о сделках и тикетах
type Consumer struct {
	reader        messageReader
	archive       EventArchive
	logger        *logrus.Logger
	batchSize     int
	workers       int
	flushInterval time.Duration
	flushTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration
	offsets       *offsetTracker

	// Статистика
	mu                sync.RWMutex
	messagesProcessed int64
	messagesFailed    int64
	startTime         time.Time
}

// Config конфигурация consumer
type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	FlushTimeout  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Statistics счетчики обработки
type Statistics struct {
	MessagesProcessed int64
	MessagesFailed    int64
	Uptime            time.Duration
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(cfg *Config, archive EventArchive, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		Logger:      kafka.LoggerFunc(logger.Debugf),
		ErrorLogger: kafka.LoggerFunc(logger.Errorf),
	})

	logger.Infof("Kafka consumer initialized: Topic=%s, GroupID=%s, Brokers=%v",
		cfg.Topic, cfg.GroupID, cfg.Brokers)

	return newConsumer(cfg, reader, archive, logger)
}

func newConsumer(cfg *Config, reader messageReader, archive EventArchive, logger *logrus.Logger) *Consumer {
	c := &Consumer{
		reader:        reader,
		archive:       archive,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		workers:       cfg.Workers,
		flushInterval: cfg.FlushInterval,
		flushTimeout:  cfg.FlushTimeout,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		offsets:       newOffsetTracker(),
		startTime:     time.Now(),
	}

	if c.batchSize <= 0 {
		c.batchSize = 1
	}
	if c.workers <= 0 {
		c.workers = 1
	}
	if c.flushInterval <= 0 {
		c.flushInterval = time.Second
	}
	if c.flushTimeout <= 0 {
		c.flushTimeout = 10 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = 1
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Second
	}

	return c
}

// Start запускает consumer и блокируется до отмены ctx
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer...")

	messages := make(chan kafka.Message, c.batchSize*2)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.processMessages(ctx, messages, workerID)
		}(i)
	}

	go func() {
		defer close(messages)
		c.readMessages(ctx, messages)
	}()

	wg.Wait()

	c.logger.Info("Kafka consumer stopped")
	return nil
}

// readMessages читает сообщения из Kafka
func (c *Consumer) readMessages(ctx context.Context, messages chan<- kafka.Message) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping message reading...")
				return
			}
			c.logger.Errorf("Failed to fetch message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.offsets.track(msg)

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// processMessages собирает события в пакеты и сохраняет их
func (c *Consumer) processMessages(ctx context.Context, messages <-chan kafka.Message, workerID int) {
	batch := make([]storages.Event, 0, c.batchSize)
	kafkaMessages := make([]kafka.Message, 0, c.batchSize)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	// Несохраненный пакет не отпускается: воркер повторяет его до успеха или остановки
	// и не берет новые сообщения, офсеты после него не коммитятся
	flush := func() {
		for len(batch) > 0 {
			if err := c.flushBatch(batch, kafkaMessages); err == nil {
				batch = batch[:0]
				kafkaMessages = kafkaMessages[:0]
				return
			}

			select {
			case <-ctx.Done():
				c.logger.Warnf("Worker %d: Dropping unsaved batch of %d events, it will be redelivered", workerID, len(batch))
				return
			case <-time.After(c.retryDelay):
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case <-ticker.C:
			flush()

		case msg, ok := <-messages:
			if !ok {
				flush()
				return
			}

			event, err := parseMessage(msg)
			if err != nil {
				c.logger.Errorf("Worker %d: Failed to parse message: %v", workerID, err)
				c.incrementFailed()
				// Битое сообщение не блокирует партицию, но коммитится только после предыдущих
				if err := c.commit(c.offsets.complete(msg)...); err != nil {
					c.logger.Errorf("Worker %d: Failed to commit failed message: %v", workerID, err)
				}
				continue
			}

			batch = append(batch, *event)
			kafkaMessages = append(kafkaMessages, msg)

			if len(batch) >= c.batchSize {
				flush()
			}
		}
	}
}

// parseMessage разбирает сообщение из Kafka
func parseMessage(msg kafka.Message) (*storages.Event, error) {
	var event storages.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	switch event.Type {
	case storages.EventDealCreated, storages.EventTicketCreated:
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	if event.UserID <= 0 || event.EntityID == "" {
		return nil, fmt.Errorf("event %s without user or entity id", event.Type)
	}

	return &event, nil
}

// flushBatch сохраняет пакет событий в архив и коммитит офсеты.
// Работает на собственном контексте, чтобы остаток пакета сохранился и после остановки.
func (c *Consumer) flushBatch(batch []storages.Event, messages []kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
	defer cancel()

	start := time.Now()

	var err error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		err = c.archive.SaveEventBatch(ctx, batch)
		if err == nil {
			break
		}

		c.logger.Warnf("Attempt %d/%d: Failed to save batch: %v",
			attempt+1, c.retryAttempts, err)

		if attempt < c.retryAttempts-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		c.logger.Errorf("Failed to save batch after %d attempts: %v", c.retryAttempts, err)
		c.incrementFailed()
		return err
	}

	duration := time.Since(start)
	c.incrementProcessed(int64(len(batch)))

	// События уже в архиве, неудачный коммит перекроет следующий
	if err := c.commit(c.offsets.complete(messages...)...); err != nil {
		c.logger.Errorf("Failed to commit messages: %v", err)
	}

	c.logger.Infof("Flushed batch: size=%d, duration=%v", len(batch), duration)
	return nil
}

func (c *Consumer) commit(msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
	defer cancel()
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) incrementProcessed(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesProcessed += count
}

func (c *Consumer) incrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesFailed++
}

// GetStatistics возвращает статистику обработки
func (c *Consumer) GetStatistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Statistics{
		MessagesProcessed: c.messagesProcessed,
		MessagesFailed:    c.messagesFailed,
		Uptime:            time.Since(c.startTime),
	}
}

// Close закрывает consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
