package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftbox-shop/models"
	"giftbox-shop/storefront/cart"
	"giftbox-shop/storefront/catalog"
)

func newCart(t *testing.T) *cart.Store {
	t.Helper()
	store, err := cart.NewStore(cart.NewMemoryStorage(), catalog.Default(), nil)
	require.NoError(t, err)
	return store
}

func TestBuildOrderDataSnapshotsCatalog(t *testing.T) {
	client := NewClient("http://backend", "", catalog.Default(), newCart(t))

	data, err := client.BuildOrderData(validFields(), []models.CartLine{
		{ProductID: "059", Quantity: 2},
		{ProductID: "120", ColorVariant: "Красная", Quantity: 1},
		{ProductID: "gone", Quantity: 5},
	})
	require.NoError(t, err)

	var items []models.OrderLineItem
	require.NoError(t, json.Unmarshal(data.LineItems, &items))
	require.Len(t, items, 2)
	assert.Equal(t, models.OrderLineItem{
		ProductID: "059", Name: "Подарочная коробка с лентой", Artikul: "059",
		Color: "Розовая", UnitPrice: 290, Quantity: 2,
	}, items[0])
	assert.Equal(t, "Красная", items[1].Color)

	assert.Equal(t, int64(1030), data.Subtotal)
	assert.Equal(t, int64(0), data.Discount)
	assert.Equal(t, int64(1030), data.Total)
	assert.Equal(t, models.PaymentCash, data.PaymentMethod)
	assert.Equal(t, models.DeliveryCourier, data.DeliveryMethod)
}

func TestBuildOrderDataEmptyCart(t *testing.T) {
	client := NewClient("http://backend", "", catalog.Default(), newCart(t))

	_, err := client.BuildOrderData(validFields(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitSuccessClearsCart(t *testing.T) {
	var received models.CreateOrderRequest
	var headers http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order-processing", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.OrderResponse{
			Success: true,
			Message: "Заказ успешно создан и обработан",
			Order:   &models.Order{ID: "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11", Status: models.OrderStatusCreated},
		})
	}))
	defer backend.Close()

	store := newCart(t)
	require.NoError(t, store.Add("059", "", 2))
	client := NewClient(backend.URL+"/", "anon-key", catalog.Default(), store)

	order, err := client.Submit(context.Background(), validFields())
	require.NoError(t, err)
	assert.Equal(t, "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11", order.ID)
	assert.Empty(t, store.All())

	assert.Equal(t, "anon-key", headers.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", headers.Get("Authorization"))
	require.NotNil(t, received.OrderData)
	assert.Equal(t, int64(580), received.OrderData.Total)
	assert.Equal(t, "Анна", received.OrderData.CustomerName)
}

func TestSubmitFailureKeepsCartAndReturnsServerMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.OrderResponse{Success: false, Error: "Сумма заказа не совпадает с расчётом"})
	}))
	defer backend.Close()

	store := newCart(t)
	require.NoError(t, store.Add("059", "", 2))
	client := NewClient(backend.URL, "", catalog.Default(), store)

	_, err := client.Submit(context.Background(), validFields())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Equal(t, "Сумма заказа не совпадает с расчётом", err.Error())
	assert.Len(t, store.All(), 1)
}

func TestSubmitNetworkError(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	store := newCart(t)
	require.NoError(t, store.Add("059", "", 1))
	client := NewClient(url, "", catalog.Default(), store)

	_, err := client.Submit(context.Background(), validFields())
	assert.Error(t, err)
	assert.Len(t, store.All(), 1)
}
