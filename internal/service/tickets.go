package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// CreateTicket создает обращение в поддержку от имени пользователя
func (s *OTCService) CreateTicket(ctx context.Context, userID int64, subject, message string) (*storages.Ticket, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, invalidField("subject", "subject is required")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidField("message", "message is required")
	}

	ticket := &storages.Ticket{
		TicketID:  "ticket_" + uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Message:   message,
		Status:    storages.TicketStatusOpen,
		CreatedAt: s.timestamp(),
	}

	if err := s.storage.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishTicketCreated(ctx, ticket); err != nil {
			s.logger.Warnf("Failed to publish ticket event: %v", err)
		}
	}

	s.logger.Infof("Ticket created: ID=%s, User=%d", ticket.TicketID, userID)
	return ticket, nil
}

// ListMyTickets возвращает обращения пользователя
func (s *OTCService) ListMyTickets(ctx context.Context, userID int64) ([]storages.Ticket, error) {
	tickets, err := s.storage.GetUserTickets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	if tickets == nil {
		tickets = []storages.Ticket{}
	}

	return tickets, nil
}
