package storages

import (
	"context"
	"errors"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности ключа
	ErrAlreadyExists = errors.New("already exists")
)

// Storage определяет интерфейс для работы с хранилищем данных
type Storage interface {
	// User operations
	GetUserByID(ctx context.Context, userID int64) (*User, error)
	GetUserByWebLogin(ctx context.Context, login string) (*User, error)
	UpsertUser(ctx context.Context, user *User) error

	// Deal operations
	CreateDeal(ctx context.Context, deal *Deal) error
	GetUserDeals(ctx context.Context, userID int64) ([]Deal, error)

	// Ticket operations
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetUserTickets(ctx context.Context, userID int64) ([]Ticket, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
