package storages

import "time"

// EventType тип события, публикуемого в Kafka
type EventType string

const (
	EventDealCreated   EventType = "deal_created"
	EventTicketCreated EventType = "ticket_created"
)

// Event событие о созданной сделке или тикете. Формат общий для Kafka и архива MongoDB.
type Event struct {
	Type          EventType `json:"type" bson:"type"`
	UserID        int64     `json:"user_id" bson:"user_id"`
	EntityID      string    `json:"entity_id" bson:"entity_id"`
	Amount        string    `json:"amount,omitempty" bson:"amount,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Status        string    `json:"status" bson:"status"`
	Source        string    `json:"source,omitempty" bson:"source,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	ProcessedAt   time.Time `json:"-" bson:"processed_at"`
}

// NewDealEvent строит событие deal_created
func NewDealEvent(deal *Deal) Event {
	return Event{
		Type:          EventDealCreated,
		UserID:        deal.SellerID,
		EntityID:      deal.DealID,
		Amount:        deal.Amount.String(),
		PaymentMethod: string(deal.PaymentMethod),
		Status:        string(deal.Status),
		Source:        string(deal.Source),
		Timestamp:     deal.CreatedAt,
	}
}

// NewTicketEvent строит событие ticket_created
func NewTicketEvent(ticket *Ticket) Event {
	return Event{
		Type:      EventTicketCreated,
		UserID:    ticket.UserID,
		EntityID:  ticket.TicketID,
		Status:    string(ticket.Status),
		Timestamp: ticket.CreatedAt,
	}
}

// EventStatistics сводка по архиву событий
type EventStatistics struct {
	TotalEvents     int64     `bson:"total_events" json:"total_events"`
	DealsCreated    int64     `bson:"deals_created" json:"deals_created"`
	TicketsCreated  int64     `bson:"tickets_created" json:"tickets_created"`
	TotalDealAmount float64   `bson:"total_deal_amount" json:"total_deal_amount"`
	LastProcessedAt time.Time `bson:"last_processed_at" json:"last_processed_at"`
}
