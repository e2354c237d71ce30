package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"giftbox-shop/models"
)

func sampleOrder() models.Order {
	confirmedAt := time.Date(2026, 10, 16, 9, 45, 0, 0, time.UTC)
	return models.Order{
		ID:             "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11",
		CustomerName:   "Анна_Ивановна",
		Phone:          "+7 (912) 345-67-89",
		Email:          "anna@example.com",
		PaymentMethod:  models.PaymentCash,
		DeliveryMethod: models.DeliveryPickup,
		PickupLocation: "pickup_moscow",
		LineItems: []models.OrderLineItem{
			{ProductID: "059", Name: "Подарочная коробка с лентой", Artikul: "059", Color: "Розовая", UnitPrice: 290, Quantity: 2},
			{ProductID: "120", Name: "Подарочная коробка с лентой", Color: "Сиреневая", UnitPrice: 450, Quantity: 1},
		},
		Subtotal:    1030,
		Total:       1030,
		Status:      models.OrderStatusConfirmed,
		CreatedAt:   time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		ConfirmedAt: &confirmedAt,
		OrderNumber: "2026-10-16-1",
	}
}

func TestEmailNotifierSendsConfirmationLink(t *testing.T) {
	var got sendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	n := NewEmailNotifier("re_test", "shop@example.com", func(id string) string {
		return "https://shop.example.com/order-confirmation?id=" + id
	}).WithBaseURL(srv.URL)

	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})
	require.NoError(t, err)

	assert.Equal(t, []string{"anna@example.com"}, got.To)
	assert.Equal(t, "shop@example.com", got.From)
	assert.Equal(t, "Подтвердите ваш заказ №6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11", got.Subject)
	assert.Contains(t, got.HTML, "https://shop.example.com/order-confirmation?id=6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11")
}

func TestEmailNotifierErrors(t *testing.T) {
	status := http.StatusUnprocessableEntity
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	n := NewEmailNotifier("re_test", "shop@example.com", func(string) string { return "" }).WithBaseURL(srv.URL)
	event := OrderEvent{Type: EventOrderCreated, Order: sampleOrder()}

	err := n.Notify(context.Background(), event)
	var perm *permanentError
	assert.ErrorAs(t, err, &perm)

	status = http.StatusBadGateway
	err = n.Notify(context.Background(), event)
	require.Error(t, err)
	assert.False(t, errors.As(err, &perm))

	unconfigured := NewEmailNotifier("", "shop@example.com", func(string) string { return "" })
	assert.ErrorIs(t, unconfigured.Notify(context.Background(), event), ErrNotifierNotConfigured)
}

func TestTelegramNotifierPostsMarkdown(t *testing.T) {
	var got telegramSendMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "-100500", time.UTC).WithBaseURL(srv.URL)
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})
	require.NoError(t, err)

	assert.Equal(t, "-100500", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Contains(t, got.Text, "📦 *Новый заказ!*")
}

func TestTelegramNotifierReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "-1", time.UTC).WithBaseURL(srv.URL)
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderConfirmed, Order: sampleOrder()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	var perm *permanentError
	assert.ErrorAs(t, err, &perm)
}

func TestTelegramNotifierHidesTokenOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	n := NewTelegramNotifier("123:secret", "-1", time.UTC).WithBaseURL(baseURL)
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestTelegramNotifierNotConfigured(t *testing.T) {
	n := NewTelegramNotifier("", "", time.UTC)
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})
	assert.ErrorIs(t, err, ErrNotifierNotConfigured)
}

func TestSheetsWebhookNotifierUpsertsRow(t *testing.T) {
	var got sheetsWebhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	n := NewSheetsWebhookNotifier(srv.URL, "sheet-1")
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderConfirmed, Order: sampleOrder()})
	require.NoError(t, err)

	assert.Equal(t, "sheet-1", got.SheetID)
	assert.Equal(t, "addOrUpdateOrder", got.Action)
	require.Len(t, got.OrderData, 14)
	assert.Equal(t, "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11", got.OrderData[0])
	assert.Equal(t, "confirmed", got.OrderData[11])
}

func TestSheetsWebhookNotifierNotConfigured(t *testing.T) {
	n := NewSheetsWebhookNotifier("", "")
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})
	assert.ErrorIs(t, err, ErrNotifierNotConfigured)
}

// fakeSheetsAPI serves the three values endpoints used by SheetsAPINotifier
func fakeSheetsAPI(t *testing.T, existingIDs []string) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			values := make([][]string, 0, len(existingIDs))
			for _, id := range existingIDs {
				values = append(values, []string{id})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	return srv, &calls
}

func TestSheetsAPINotifierUpdatesExistingRow(t *testing.T) {
	srv, calls := fakeSheetsAPI(t, []string{"id", "other", "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11"})
	defer srv.Close()

	n, err := NewSheetsAPINotifier(context.Background(), "", "spreadsheet-1", "Заказы",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	err = n.Notify(context.Background(), OrderEvent{Type: EventOrderConfirmed, Order: sampleOrder()})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodPut, (*calls)[1][:3])
	assert.Contains(t, (*calls)[1], "A3:N3")
}

func TestSheetsAPINotifierAppendsNewRow(t *testing.T) {
	srv, calls := fakeSheetsAPI(t, []string{"id"})
	defer srv.Close()

	n, err := NewSheetsAPINotifier(context.Background(), "", "spreadsheet-1", "Заказы",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	err = n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Contains(t, (*calls)[1], ":append")
}

func TestSheetsWebhookNotifierErrors(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	n := NewSheetsWebhookNotifier(srv.URL, "sheet-1")
	event := OrderEvent{Type: EventOrderCreated, Order: sampleOrder()}

	err := n.Notify(context.Background(), event)
	var perm *permanentError
	assert.ErrorAs(t, err, &perm)

	status = http.StatusTooManyRequests
	err = n.Notify(context.Background(), event)
	require.Error(t, err)
	assert.False(t, errors.As(err, &perm))

	status = http.StatusInternalServerError
	err = n.Notify(context.Background(), event)
	require.Error(t, err)
	assert.False(t, errors.As(err, &perm))
}

func TestSheetsWebhookRejectionIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d, _ := newTestDispatcher(3)
	d.Register(EventOrderCreated, NewSheetsWebhookNotifier(srv.URL, "sheet-1"))

	errs := d.Deliver(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})

	require.Len(t, errs, 1)
	var nerr *NotificationError
	require.ErrorAs(t, errs[0], &nerr)
	assert.Equal(t, 1, nerr.Attempts)
	assert.Equal(t, 1, calls)
}

func TestTelegramNotifierReportsUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>502 Bad Gateway</html>"))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "-1", time.UTC).WithBaseURL(srv.URL)
	err := n.Notify(context.Background(), OrderEvent{Type: EventOrderCreated, Order: sampleOrder()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502 Bad Gateway")
	assert.NotContains(t, err.Error(), "Неизвестная ошибка")
	var perm *permanentError
	assert.False(t, errors.As(err, &perm))
}
