package storages

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Суммы отдаются клиенту числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true
}

// User представляет пользователя системы. Строки создаются ботом или cmd/useradd.
type User struct {
	UserID          int64           `db:"user_id"`
	Username        string          `db:"username"`
	TonWallet       string          `db:"ton_wallet"`
	CardDetails     string          `db:"card_details"`
	Balance         decimal.Decimal `db:"balance"`
	SuccessfulDeals int64           `db:"successful_deals"`
	Lang            string          `db:"lang"`
	IsAdmin         bool            `db:"is_admin"`
	WebLogin        string          `db:"web_login"`
	WebPasswordHash string          `db:"web_password_hash"`
}

// Profile публичная часть пользователя, без учетных данных
type Profile struct {
	UserID          int64           `json:"user_id"`
	Username        string          `json:"username"`
	TonWallet       string          `json:"ton_wallet"`
	CardDetails     string          `json:"card_details"`
	Balance         decimal.Decimal `json:"balance"`
	SuccessfulDeals int64           `json:"successful_deals"`
	Lang            string          `json:"lang"`
	IsAdmin         bool            `json:"is_admin"`
}

// Profile возвращает публичный профиль пользователя
func (u *User) Profile() *Profile {
	return &Profile{
		UserID:          u.UserID,
		Username:        u.Username,
		TonWallet:       u.TonWallet,
		CardDetails:     u.CardDetails,
		Balance:         u.Balance,
		SuccessfulDeals: u.SuccessfulDeals,
		Lang:            u.Lang,
		IsAdmin:         u.IsAdmin,
	}
}

// DealStatus статус сделки
type DealStatus string

const (
	DealStatusActive     DealStatus = "active"
	DealStatusConfirmed  DealStatus = "confirmed"
	DealStatusSellerSent DealStatus = "seller_sent"
	DealStatusCompleted  DealStatus = "completed"
	DealStatusCancelled  DealStatus = "cancelled"
)

// PaymentMethod способ оплаты сделки
type PaymentMethod string

const (
	PaymentMethodTON   PaymentMethod = "ton"
	PaymentMethodSBP   PaymentMethod = "sbp"
	PaymentMethodStars PaymentMethod = "stars"
)

// Valid сообщает, известен ли способ оплаты
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodTON, PaymentMethodSBP, PaymentMethodStars:
		return true
	}
	return false
}

// DealSource канал, через который создана сделка
type DealSource string

const (
	DealSourceWeb DealSource = "web"
	DealSourceBot DealSource = "bot"
)

// Deal представляет сделку (торговое предложение продавца)
type Deal struct {
	DealID        string          `db:"deal_id" json:"deal_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	SellerID      int64           `db:"seller_id" json:"seller_id"`
	BuyerID       *int64          `db:"buyer_id" json:"buyer_id"`
	Status        DealStatus      `db:"status" json:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Source        DealSource      `db:"source" json:"source"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// TicketStatus статус обращения в поддержку
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Ticket представляет обращение в поддержку
type Ticket struct {
	TicketID  string       `db:"ticket_id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Subject   string       `db:"subject" json:"subject"`
	Message   string       `db:"message" json:"message"`
	Status    TicketStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
