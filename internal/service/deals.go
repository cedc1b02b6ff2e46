package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// CreateDeal создает сделку от имени авторизованного продавца
func (s *OTCService) CreateDeal(ctx context.Context, userID int64, amount decimal.Decimal, description string, method storages.PaymentMethod) (*storages.Deal, error) {
	if !amount.IsPositive() {
		return nil, invalidField("amount", "amount must be a positive number")
	}
	if msg := checkMoney(amount); msg != "" {
		return nil, invalidField("amount", "amount "+msg)
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidField("description", "description is required")
	}

	if !method.Valid() {
		return nil, invalidField("payment_method", fmt.Sprintf("unsupported payment_method: %q", method))
	}

	createdAt := s.timestamp()
	deal := &storages.Deal{
		DealID:        dealID(createdAt, userID),
		Amount:        amount,
		Description:   description,
		SellerID:      userID,
		Status:        storages.DealStatusActive,
		PaymentMethod: method,
		Source:        storages.DealSourceWeb,
		CreatedAt:     createdAt,
	}

	err := s.storage.CreateDeal(ctx, deal)
	if errors.Is(err, storages.ErrAlreadyExists) {
		// Вторая сделка того же продавца в ту же секунду
		deal.DealID = deal.DealID + "_" + uuid.NewString()[:8]
		err = s.storage.CreateDeal(ctx, deal)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishDealCreated(ctx, deal); err != nil {
			s.logger.Warnf("Failed to publish deal event: %v", err)
		}
	}

	s.logger.Infof("Deal created: ID=%s, Seller=%d, Amount=%s %s", deal.DealID, userID, amount, method)
	return deal, nil
}

// ListMyDeals возвращает сделки, где пользователь продавец или покупатель
func (s *OTCService) ListMyDeals(ctx context.Context, userID int64) ([]storages.Deal, error) {
	deals, err := s.storage.GetUserDeals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deals: %w", err)
	}

	if deals == nil {
		deals = []storages.Deal{}
	}

	return deals, nil
}

// Суммы хранятся с точностью NUMERIC(20, 8)
const (
	moneyScale         = 8
	moneyIntegerDigits = 12
)

var moneyLimit = decimal.New(1, moneyIntegerDigits)

// checkMoney возвращает описание нарушения или пустую строку
func checkMoney(value decimal.Decimal) string {
	if !value.Equal(value.Truncate(moneyScale)) {
		return fmt.Sprintf("must have at most %d decimal places", moneyScale)
	}
	if value.Abs().GreaterThanOrEqual(moneyLimit) {
		return fmt.Sprintf("must have at most %d integer digits", moneyIntegerDigits)
	}
	return ""
}

// dealID формирует идентификатор web_<YYYYMMDDHHMMSS>_<seller_id>
func dealID(createdAt time.Time, sellerID int64) string {
	return fmt.Sprintf("web_%s_%d", createdAt.UTC().Format("20060102150405"), sellerID)
}
