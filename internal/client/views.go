package client

import (
	"io"
	"text/template"

	"github.com/sirupsen/logrus"

	"github.com/Barizhka/magnate-otc/internal/storages"
	"github.com/Barizhka/magnate-otc/pkg"
)

const (
	noDealsText   = "У вас пока нет сделок"
	noTicketsText = "У вас пока нет тикетов"
)

var dealStatusText = map[storages.DealStatus]string{
	storages.DealStatusActive:     "Активна",
	storages.DealStatusConfirmed:  "Подтверждена",
	storages.DealStatusCompleted:  "Завершена",
	storages.DealStatusCancelled:  "Отменена",
	storages.DealStatusSellerSent: "Отправлено",
}

var paymentMethodText = map[storages.PaymentMethod]string{
	storages.PaymentMethodTON:   "TON",
	storages.PaymentMethodSBP:   "RUB",
	storages.PaymentMethodStars: "XTR",
}

// StatusText подпись статуса сделки. Неизвестный статус выводится как есть.
func StatusText(status storages.DealStatus) string {
	if text, ok := dealStatusText[status]; ok {
		return text
	}
	return string(status)
}

// PaymentMethodText валюта способа оплаты
func PaymentMethodText(method storages.PaymentMethod) string {
	if text, ok := paymentMethodText[method]; ok {
		return text
	}
	return string(method)
}

// SourceText подпись канала создания сделки
func SourceText(source storages.DealSource) string {
	if source == storages.DealSourceWeb {
		return "🌐 Веб"
	}
	return "🤖 Бот"
}

var viewFuncs = template.FuncMap{
	"status":   StatusText,
	"currency": PaymentMethodText,
	"source":   SourceText,
	"date":     pkg.FormatDate,
}

var dealsTemplate = template.Must(template.New("deals").Funcs(viewFuncs).Parse(
	`{{range .}}Сделка #{{.DealID}} [{{status .Status}}]
  {{.Description}}
  Сумма: {{.Amount}} {{currency .PaymentMethod}}
  Статус: {{status .Status}}
  Создана: {{date .CreatedAt}}
  Источник: {{source .Source}}
{{with .BuyerID}}  Покупатель: ID {{.}}
{{end}}
{{end}}`))

var ticketsTemplate = template.Must(template.New("tickets").Funcs(viewFuncs).Parse(
	`{{range .}}{{.Subject}} [{{.Status}}]
  {{.Message}}
  Создан: {{date .CreatedAt}}

{{end}}`))

var profileTemplate = template.Must(template.New("profile").Funcs(viewFuncs).Parse(
	`Информация о профиле
  ID пользователя: {{.UserID}}
  Баланс: {{.Balance}} RUB
  Успешные сделки: {{.SuccessfulDeals}}
  Язык: {{.Lang}}
  TON кошелек: {{or .TonWallet "Не указан"}}
  Карта: {{or .CardDetails "Не указана"}}
`))

// Views выводит данные кабинета в текстовом виде
type Views struct {
	logger *logrus.Logger
}

// NewViews создает рендерер
func NewViews(logger *logrus.Logger) *Views {
	return &Views{logger: logger}
}

// Deals выводит список сделок или заглушку для пустого списка
func (v *Views) Deals(w io.Writer, deals []storages.Deal) {
	if len(deals) == 0 {
		v.placeholder(w, noDealsText)
		return
	}
	if err := dealsTemplate.Execute(w, deals); err != nil {
		v.logger.Errorf("Failed to render deals: %v", err)
	}
}

// Tickets выводит список тикетов или заглушку для пустого списка
func (v *Views) Tickets(w io.Writer, tickets []storages.Ticket) {
	if len(tickets) == 0 {
		v.placeholder(w, noTicketsText)
		return
	}
	if err := ticketsTemplate.Execute(w, tickets); err != nil {
		v.logger.Errorf("Failed to render tickets: %v", err)
	}
}

// Profile выводит профиль пользователя
func (v *Views) Profile(w io.Writer, profile *storages.Profile) {
	if profile == nil {
		return
	}
	if err := profileTemplate.Execute(w, profile); err != nil {
		v.logger.Errorf("Failed to render profile: %v", err)
	}
}

func (v *Views) placeholder(w io.Writer, text string) {
	if _, err := io.WriteString(w, "ℹ "+text+"\n"); err != nil {
		v.logger.Errorf("Failed to render placeholder: %v", err)
	}
}
