package models

import (
	"encoding/json"
	"time"
)

// Order statuses. The only transition is created -> confirmed.
const (
	OrderStatusCreated   = "created"
	OrderStatusConfirmed = "confirmed"
)

// Payment methods
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

// Delivery methods stored on the order. Specific pickup points sent by the
// checkout form (pickup_moscow, pickup_ershovo, ...) are collapsed into
// DeliveryPickup and kept in Order.PickupLocation.
const (
	DeliveryCourier = "delivery"
	DeliveryPickup  = "pickup"
)

// OrderLineItem is a snapshot of a catalog product taken at submission time.
type OrderLineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Artikul   string `json:"artikul"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns unitPrice * quantity
func (li OrderLineItem) LineTotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// UnmarshalJSON accepts both the current keys and the legacy storefront keys
// ("id" for productId and "price" for unitPrice).
func (li *OrderLineItem) UnmarshalJSON(data []byte) error {
	var aux struct {
		ProductID string `json:"productId"`
		ID        string `json:"id"`
		Name      string `json:"name"`
		Artikul   string `json:"artikul"`
		Color     string `json:"color"`
		UnitPrice *int64 `json:"unitPrice"`
		Price     *int64 `json:"price"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	li.ProductID = aux.ProductID
	if li.ProductID == "" {
		li.ProductID = aux.ID
	}
	li.Name = aux.Name
	li.Artikul = aux.Artikul
	li.Color = aux.Color
	li.Quantity = aux.Quantity
	switch {
	case aux.UnitPrice != nil:
		li.UnitPrice = *aux.UnitPrice
	case aux.Price != nil:
		li.UnitPrice = *aux.Price
	default:
		li.UnitPrice = 0
	}
	return nil
}

// Order represents an order row in the database
type Order struct {
	ID             string          `json:"id"`
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address,omitempty"`
	Comment        string          `json:"comment,omitempty"`
	PaymentMethod  string          `json:"paymentMethod"`
	DeliveryMethod string          `json:"deliveryMethod"`
	PickupLocation string          `json:"pickupLocation,omitempty"`
	LineItems      []OrderLineItem `json:"lineItems"`
	Subtotal       int64           `json:"subtotal"`
	DiscountAmount int64           `json:"discountAmount"`
	Total          int64           `json:"total"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ConfirmedAt    *time.Time      `json:"confirmedAt,omitempty"`
	OrderNumber    string          `json:"orderNumber,omitempty"`
}

// IsConfirmed reports whether the order reached its terminal state
func (o *Order) IsConfirmed() bool {
	return o.Status == OrderStatusConfirmed
}

// DisplayNumber returns the order number when assigned, the id otherwise
func (o *Order) DisplayNumber() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

// OrderData is the order payload sent by the storefront.
// lineItems is kept raw because older clients send it as a JSON-encoded
// string; the order service parses it before validation.
// Example:
//
//	{
//	  "customerName": "Анна",
//	  "phone": "+7 (912) 345-67-89",
//	  "email": "anna@example.com",
//	  "address": "ул. Ленина, д. 10",
//	  "paymentMethod": "cash",
//	  "deliveryMethod": "pickup_moscow",
//	  "lineItems": [{"productId": "059", "name": "Подарочная коробка с лентой", "artikul": "059", "color": "Розовая", "unitPrice": 290, "quantity": 2}],
//	  "subtotal": 580,
//	  "discount": 0,
//	  "total": 580
//	}
type OrderData struct {
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address,omitempty"`
	Comment        string          `json:"comment,omitempty"`
	PaymentMethod  string          `json:"paymentMethod"`
	DeliveryMethod string          `json:"deliveryMethod"`
	LineItems      json.RawMessage `json:"lineItems,omitempty"`
	CartItems      json.RawMessage `json:"cart_items,omitempty"` // legacy key
	Subtotal       int64           `json:"subtotal"`
	Discount       int64           `json:"discount"`
	Total          int64           `json:"total"`
}

// SetLineItems encodes items into the lineItems field
func (d *OrderData) SetLineItems(items []OrderLineItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	d.LineItems = raw
	d.CartItems = nil
	return nil
}

// RawLineItems returns lineItems, falling back to the legacy cart_items key
func (d *OrderData) RawLineItems() json.RawMessage {
	if len(d.LineItems) > 0 {
		return d.LineItems
	}
	return d.CartItems
}

// CreateOrderRequest represents the request body of POST /order-processing
type CreateOrderRequest struct {
	OrderData *OrderData `json:"orderData"`
}

// ConfirmOrderRequest represents the request body of POST /order-confirmation
// Example: {"orderId": "6f1c0e9a-7a57-4c43-9d0b-1f7a3f5d2b11"}
type ConfirmOrderRequest struct {
	OrderID string `json:"orderId"`
}

// OrderResponse is the JSON envelope returned by the order endpoints
// Example response:
//
//	{
//	  "success": true,
//	  "message": "Заказ успешно подтверждён",
//	  "order": {"id": "6f1c0e9a-...", "status": "confirmed", "orderNumber": "2026-10-16-3", ...}
//	}
type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"order,omitempty"`
	Error   string `json:"error,omitempty"`
}
