package service

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"giftbox-shop/models"
	"giftbox-shop/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"rub":       utils.FormatRUB,
	"orDefault": utils.OrDefault,
}).ParseFS(templateFS, "templates/*.html"))

const displayTimeLayout = "02.01.2006 15:04"

// orderView is the template data shared by the email and the receipt
type orderView struct {
	Order           *models.Order
	ConfirmationURL string
	PaymentLabel    string
	DeliveryLabel   string
	PickupLabel     string
	StatusLabel     string
	CreatedAt       string
	ConfirmedAt     string
}

func newOrderView(order *models.Order, loc *time.Location) orderView {
	if loc == nil {
		loc = time.UTC
	}
	view := orderView{
		Order:         order,
		PaymentLabel:  utils.MapPaymentToLabel(order.PaymentMethod),
		DeliveryLabel: utils.MapDeliveryToLabel(order.DeliveryMethod),
		StatusLabel:   statusLabel(order.Status),
		CreatedAt:     order.CreatedAt.In(loc).Format(displayTimeLayout),
	}
	if order.PickupLocation != "" {
		view.PickupLabel = utils.MapPickupLocationToLabel(order.PickupLocation)
	}
	if order.ConfirmedAt != nil {
		view.ConfirmedAt = order.ConfirmedAt.In(loc).Format(displayTimeLayout)
	}
	return view
}

func statusLabel(status string) string {
	if status == models.OrderStatusConfirmed {
		return "Подтверждён"
	}
	return "Ожидает подтверждения"
}

// RenderOrderEmail renders the confirmation request email
func RenderOrderEmail(order *models.Order, confirmationURL string) (string, error) {
	view := newOrderView(order, nil)
	view.ConfirmationURL = confirmationURL

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "order_email.html", view); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

// RenderReceiptHTML renders the printable order summary
func RenderReceiptHTML(order *models.Order, loc *time.Location) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "receipt.html", newOrderView(order, loc)); err != nil {
		return "", fmt.Errorf("failed to execute receipt template: %w", err)
	}
	return buf.String(), nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user input for Telegram's legacy Markdown mode
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// BuildTelegramMessage renders the chat message for an event
func BuildTelegramMessage(event OrderEvent, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	o := event.Order
	delivery := utils.MapDeliveryToLabel(o.DeliveryMethod)
	if o.PickupLocation != "" {
		delivery += ", " + utils.MapPickupLocationToLabel(o.PickupLocation)
	}

	var b strings.Builder
	switch event.Type {
	case EventOrderConfirmed:
		b.WriteString("✅ *Заказ подтверждён клиентом!*\n\n")
		fmt.Fprintf(&b, "📋 *Заказ №%s*\n", escapeMarkdown(o.DisplayNumber()))
		fmt.Fprintf(&b, "👤 *Клиент:* %s\n", escapeMarkdown(o.CustomerName))
	default:
		b.WriteString("📦 *Новый заказ!*\n")
		fmt.Fprintf(&b, "👤 *Имя:* %s\n", escapeMarkdown(o.CustomerName))
	}
	fmt.Fprintf(&b, "📞 *Телефон:* %s\n", escapeMarkdown(o.Phone))
	fmt.Fprintf(&b, "✉️ *Email:* %s\n", escapeMarkdown(o.Email))
	fmt.Fprintf(&b, "🏠 *Адрес:* %s\n", escapeMarkdown(utils.OrDefault(o.Address, "Не указан")))
	if event.Type == EventOrderConfirmed {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "💰 *Сумма заказа:* %s\n", utils.FormatRUB(o.Total))
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&b, "🎁 *Скидка:* %s\n", utils.FormatRUB(o.DiscountAmount))
	}
	fmt.Fprintf(&b, "💳 *Оплата:* %s\n", utils.MapPaymentToLabel(o.PaymentMethod))
	fmt.Fprintf(&b, "🚚 *Доставка:* %s\n", escapeMarkdown(delivery))
	if event.Type == EventOrderConfirmed && o.ConfirmedAt != nil {
		fmt.Fprintf(&b, "\n⏰ *Подтверждено:* %s\n", o.ConfirmedAt.In(loc).Format(displayTimeLayout))
	}
	return b.String()
}

// SheetRow returns the 14 spreadsheet columns of an order:
// id, name, phone, email, address, payment, delivery, line items (JSON),
// subtotal, discount, total, status, created_at, confirmed_at.
func SheetRow(order *models.Order) ([]any, error) {
	items, err := json.Marshal(order.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}

	delivery := order.DeliveryMethod
	if order.PickupLocation != "" {
		delivery = order.PickupLocation
	}
	confirmedAt := ""
	if order.ConfirmedAt != nil {
		confirmedAt = order.ConfirmedAt.UTC().Format(time.RFC3339)
	}

	return []any{
		order.ID,
		order.CustomerName,
		order.Phone,
		order.Email,
		utils.OrDefault(order.Address, "Не указан"),
		utils.OrDefault(order.PaymentMethod, "Не указан"),
		utils.OrDefault(delivery, "Не указан"),
		string(items),
		order.Subtotal,
		order.DiscountAmount,
		order.Total,
		order.Status,
		order.CreatedAt.UTC().Format(time.RFC3339),
		confirmedAt,
	}, nil
}
