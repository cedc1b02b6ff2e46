package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// sender часть tgbotapi.BotAPI, нужная для отправки сообщений
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier сообщает пользователям в Telegram о созданных сделках и тикетах.
// user_id пользователя совпадает с его chat id в боте.
type Notifier struct {
	bot    sender
	logger *logrus.Logger
}

// New авторизует бота по токену
func New(token string, logger *logrus.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	bot.Debug = false

	logger.Infof("Telegram bot authorized as @%s", bot.Self.UserName)
	return newNotifier(bot, logger), nil
}

func newNotifier(bot sender, logger *logrus.Logger) *Notifier {
	return &Notifier{bot: bot, logger: logger}
}

// NotifyBatch отправляет по сообщению на каждое событие. Ошибки отправки только логируются.
func (n *Notifier) NotifyBatch(ctx context.Context, events []storages.Event) {
	for _, event := range events {
		if ctx.Err() != nil {
			return
		}

		text := MessageText(event)
		if text == "" {
			continue
		}

		if _, err := n.bot.Send(tgbotapi.NewMessage(event.UserID, text)); err != nil {
			n.logger.Warnf("Failed to notify user %d about %s: %v", event.UserID, event.EntityID, err)
		}
	}
}

// MessageText текст уведомления для события
func MessageText(event storages.Event) string {
	switch event.Type {
	case storages.EventDealCreated:
		return fmt.Sprintf("✅ Сделка %s создана через веб-интерфейс\nСумма: %s %s",
			event.EntityID, event.Amount, currency(event.PaymentMethod))
	case storages.EventTicketCreated:
		return fmt.Sprintf("📨 Тикет %s создан, поддержка ответит в ближайшее время", event.EntityID)
	}
	return ""
}

func currency(method string) string {
	switch storages.PaymentMethod(method) {
	case storages.PaymentMethodTON:
		return "TON"
	case storages.PaymentMethodSBP:
		return "RUB"
	case storages.PaymentMethodStars:
		return "XTR"
	}
	return method
}
