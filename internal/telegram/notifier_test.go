package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/storages"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	fail map[int64]bool
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if s.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	s.sent = append(s.sent, msg)
	return tgbotapi.Message{}, nil
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name  string
		event storages.Event
		want  string
	}{
		{
			name: "deal in TON",
			event: storages.Event{
				Type: storages.EventDealCreated, EntityID: "web_1", Amount: "100", PaymentMethod: "ton",
			},
			want: "✅ Сделка web_1 создана через веб-интерфейс\nСумма: 100 TON",
		},
		{
			name: "deal in SBP",
			event: storages.Event{
				Type: storages.EventDealCreated, EntityID: "web_2", Amount: "2500.5", PaymentMethod: "sbp",
			},
			want: "✅ Сделка web_2 создана через веб-интерфейс\nСумма: 2500.5 RUB",
		},
		{
			name:  "ticket",
			event: storages.Event{Type: storages.EventTicketCreated, EntityID: "ticket_1"},
			want:  "📨 Тикет ticket_1 создан, поддержка ответит в ближайшее время",
		},
		{
			name:  "unknown type",
			event: storages.Event{Type: "deal_deleted", EntityID: "web_3"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageText(tt.event))
		})
	}
}

func TestNotifyBatch(t *testing.T) {
	bot := &fakeSender{fail: map[int64]bool{2: true}}
	notifier := newNotifier(bot, logger.Discard())

	notifier.NotifyBatch(context.Background(), []storages.Event{
		{Type: storages.EventDealCreated, UserID: 1, EntityID: "web_1", Amount: "10", PaymentMethod: "stars"},
		{Type: storages.EventTicketCreated, UserID: 2, EntityID: "ticket_2"},
		{Type: "unknown", UserID: 3, EntityID: "x"},
		{Type: storages.EventTicketCreated, UserID: 4, EntityID: "ticket_4"},
	})

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(1), bot.sent[0].ChatID)
	assert.Contains(t, bot.sent[0].Text, "10 XTR")
	assert.Equal(t, int64(4), bot.sent[1].ChatID)
}

func TestNotifyBatchStopsOnCancel(t *testing.T) {
	bot := &fakeSender{}
	notifier := newNotifier(bot, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier.NotifyBatch(ctx, []storages.Event{{Type: storages.EventTicketCreated, UserID: 1, EntityID: "ticket_1"}})
	assert.Empty(t, bot.sent)
}
