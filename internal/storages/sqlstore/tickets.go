package sqlstore

import (
	"context"
	"fmt"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// CreateTicket сохраняет новое обращение в поддержку
func (s *SQLStorage) CreateTicket(ctx context.Context, ticket *storages.Ticket) error {
	query := s.db.Rebind(`
		INSERT INTO tickets (ticket_id, user_id, subject, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		ticket.TicketID,
		ticket.UserID,
		ticket.Subject,
		ticket.Message,
		string(ticket.Status),
		ticket.CreatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("ticket %s: %w", ticket.TicketID, storages.ErrAlreadyExists)
	}

	if err != nil {
		s.logger.Errorf("Failed to create ticket: %v", err)
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Infof("Created ticket: ID=%s, User=%d", ticket.TicketID, ticket.UserID)
	return nil
}

// GetUserTickets возвращает обращения пользователя, новые первыми
func (s *SQLStorage) GetUserTickets(ctx context.Context, userID int64) ([]storages.Ticket, error) {
	query := s.db.Rebind(`
		SELECT ticket_id, user_id, subject, message, status, created_at
		FROM tickets
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)

	tickets := make([]storages.Ticket, 0)
	if err := s.db.SelectContext(ctx, &tickets, query, userID); err != nil {
		s.logger.Errorf("Failed to query tickets: %v", err)
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}

	return tickets, nil
}
