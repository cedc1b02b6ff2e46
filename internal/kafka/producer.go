package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// messageWriter часть kafka.Writer, нужная продюсеру
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka producer для событий о сделках и тикетах
type Producer struct {
	writer messageWriter
	logger *logrus.Logger
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // запрос пользователя не ждет подтверждения брокера
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger:  kafka.LoggerFunc(logger.Errorf),
	}

	logger.Infof("Kafka producer initialized for topic: %s", topic)

	return newProducer(writer, logger)
}

func newProducer(writer messageWriter, logger *logrus.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// PublishDealCreated отправляет событие deal_created
func (p *Producer) PublishDealCreated(ctx context.Context, deal *storages.Deal) error {
	return p.publish(ctx, storages.NewDealEvent(deal))
}

// PublishTicketCreated отправляет событие ticket_created
func (p *Producer) PublishTicketCreated(ctx context.Context, ticket *storages.Ticket) error {
	return p.publish(ctx, storages.NewTicketEvent(ticket))
}

func (p *Producer) publish(ctx context.Context, event storages.Event) error {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorf("Failed to marshal Kafka message: %v", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Ключ по пользователю: события одного пользователя попадают в одну партицию
	kafkaMessage := kafka.Message{
		Key:   []byte(fmt.Sprintf("user_%d", event.UserID)),
		Value: messageBytes,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessage); err != nil {
		p.logger.Errorf("Failed to send message to Kafka: %v", err)
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debugf("Sent %s event to Kafka: UserID=%d, Entity=%s", event.Type, event.UserID, event.EntityID)
	return nil
}

// Close закрывает Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
