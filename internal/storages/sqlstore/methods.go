package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

const userColumns = `user_id, username, ton_wallet, card_details, balance, successful_deals, lang, is_admin,
		COALESCE(web_login, '') AS web_login, COALESCE(web_password_hash, '') AS web_password_hash`

// GetUserByID возвращает пользователя по ID
func (s *SQLStorage) GetUserByID(ctx context.Context, userID int64) (*storages.User, error) {
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE user_id = ?`)

	var user storages.User
	err := s.db.GetContext(ctx, &user, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get user by ID: %v", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByWebLogin возвращает пользователя по логину веб-интерфейса
func (s *SQLStorage) GetUserByWebLogin(ctx context.Context, login string) (*storages.User, error) {
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE web_login = ?`)

	var user storages.User
	err := s.db.GetContext(ctx, &user, query, login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get user by web login: %v", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpsertUser создает пользователя или обновляет существующую строку с тем же user_id
func (s *SQLStorage) UpsertUser(ctx context.Context, user *storages.User) error {
	query := s.db.Rebind(`
		INSERT INTO users (user_id, username, ton_wallet, card_details, balance, successful_deals, lang, is_admin, web_login, web_password_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			ton_wallet = excluded.ton_wallet,
			card_details = excluded.card_details,
			balance = excluded.balance,
			successful_deals = excluded.successful_deals,
			lang = excluded.lang,
			is_admin = excluded.is_admin,
			web_login = excluded.web_login,
			web_password_hash = excluded.web_password_hash
	`)

	_, err := s.db.ExecContext(ctx, query,
		user.UserID,
		user.Username,
		user.TonWallet,
		user.CardDetails,
		user.Balance,
		user.SuccessfulDeals,
		user.Lang,
		user.IsAdmin,
		nullString(user.WebLogin),
		nullString(user.WebPasswordHash),
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("web login %q: %w", user.WebLogin, storages.ErrAlreadyExists)
	}

	if err != nil {
		s.logger.Errorf("Failed to upsert user: %v", err)
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	s.logger.Infof("Upserted user: %s (ID: %d)", user.Username, user.UserID)
	return nil
}

// CreateDeal сохраняет новую сделку
func (s *SQLStorage) CreateDeal(ctx context.Context, deal *storages.Deal) error {
	query := s.db.Rebind(`
		INSERT INTO deals (deal_id, amount, description, seller_id, buyer_id, status, payment_method, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		deal.DealID,
		deal.Amount,
		deal.Description,
		deal.SellerID,
		deal.BuyerID,
		string(deal.Status),
		string(deal.PaymentMethod),
		string(deal.Source),
		deal.CreatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("deal %s: %w", deal.DealID, storages.ErrAlreadyExists)
	}

	if err != nil {
		s.logger.Errorf("Failed to create deal: %v", err)
		return fmt.Errorf("failed to create deal: %w", err)
	}

	s.logger.Infof("Created deal: ID=%s, Seller=%d", deal.DealID, deal.SellerID)
	return nil
}

// GetUserDeals возвращает сделки, где пользователь продавец или покупатель, новые первыми
func (s *SQLStorage) GetUserDeals(ctx context.Context, userID int64) ([]storages.Deal, error) {
	query := s.db.Rebind(`
		SELECT deal_id, amount, description, seller_id, buyer_id, status, payment_method, source, created_at
		FROM deals
		WHERE seller_id = ? OR buyer_id = ?
		ORDER BY created_at DESC
	`)

	deals := make([]storages.Deal, 0)
	if err := s.db.SelectContext(ctx, &deals, query, userID, userID); err != nil {
		s.logger.Errorf("Failed to query deals: %v", err)
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}

	return deals, nil
}

// nullString превращает пустую строку в NULL
func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
