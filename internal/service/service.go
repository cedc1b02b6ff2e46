package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// TokenIssuer выпускает подписанные токены доступа
type TokenIssuer interface {
	GenerateToken(userID int64, username string) (string, error)
}

// EventPublisher публикует события о созданных сделках и тикетах
type EventPublisher interface {
	PublishDealCreated(ctx context.Context, deal *storages.Deal) error
	PublishTicketCreated(ctx context.Context, ticket *storages.Ticket) error
}

// OTCService сервисный слой для бизнес-логики OTC площадки
type OTCService struct {
	storage storages.Storage
	tokens  TokenIssuer
	events  EventPublisher
	logger  *logrus.Logger
	now     func() time.Time
}

// NewOTCService создает новый экземпляр сервиса. events может быть nil.
func NewOTCService(
	storage storages.Storage,
	tokens TokenIssuer,
	events EventPublisher,
	logger *logrus.Logger,
) *OTCService {
	return &OTCService{
		storage: storage,
		tokens:  tokens,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени
func (s *OTCService) WithClock(now func() time.Time) *OTCService {
	s.now = now
	return s
}

// timestamp время создания записи: UTC с точностью до микросекунд, как хранит БД
func (s *OTCService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
