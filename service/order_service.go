package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"giftbox-shop/models"
	"giftbox-shop/pricing"
	"giftbox-shop/repository"
	"giftbox-shop/utils"
)

// User-facing validation messages
const (
	ErrMsgOrderDataRequired   = "Данные заказа не переданы"
	ErrMsgOrderIDRequired     = "ID заказа не указан"
	ErrMsgEmptyCart           = "Корзина пуста"
	ErrMsgInvalidCartItems    = "Invalid cart_items format"
	ErrMsgInvalidQuantity     = "Количество товара должно быть не меньше 1"
	ErrMsgInvalidPrice        = "Цена товара не может быть отрицательной"
	ErrMsgUnknownItem         = "Товар без идентификатора"
	ErrMsgInvalidPayment      = "Неизвестный способ оплаты"
	ErrMsgInvalidDelivery     = "Неизвестный способ доставки"
	ErrMsgTotalsMismatch      = "Сумма заказа не совпадает с расчётом"
	ErrMsgInvalidContactField = "Проверьте контактные данные"
)

// EventDispatcher is notified after a successful state change
type EventDispatcher interface {
	Dispatch(ctx context.Context, event OrderEvent)
}

// OrderService owns the order state machine (created -> confirmed)
type OrderService struct {
	repository repository.OrderRepositoryInterface
	dispatcher EventDispatcher
	now        func() time.Time
	location   *time.Location
}

// OrderServiceOption customizes an OrderService
type OrderServiceOption func(*OrderService)

// WithClock overrides the time source
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// WithLocation sets the time zone the daily order number sequence follows
func WithLocation(loc *time.Location) OrderServiceOption {
	return func(s *OrderService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewOrderService creates a new OrderService
func NewOrderService(repo repository.OrderRepositoryInterface, dispatcher EventDispatcher, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		repository: repo,
		dispatcher: dispatcher,
		now:        time.Now,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates the storefront payload, persists the order with
// status "created" and schedules the full notification fan-out.
func (s *OrderService) CreateOrder(ctx context.Context, data *models.OrderData) (*models.Order, error) {
	if data == nil {
		return nil, newValidationError(ErrMsgOrderDataRequired)
	}
	zap.S().Infof("📦 CreateOrder: Received order from %q <%s>", data.CustomerName, data.Email)

	order, err := s.buildOrder(data)
	if err != nil {
		zap.S().Warnf("❌ CreateOrder: Validation failed: %v", err)
		return nil, err
	}

	created, err := s.repository.Create(ctx, order)
	if err != nil {
		return nil, &PersistenceError{Op: "create order", Err: err}
	}

	zap.S().Infof("✅ CreateOrder: Order %s created, total=%s", created.ID, utils.FormatRUB(created.Total))
	s.dispatch(ctx, EventOrderCreated, created)
	return created, nil
}

// ConfirmOrder confirms the order. Confirming an already confirmed order
// returns it unchanged with alreadyConfirmed=true and triggers nothing.
func (s *OrderService) ConfirmOrder(ctx context.Context, id string) (*models.Order, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, newValidationError(ErrMsgOrderIDRequired)
	}
	zap.S().Infof("📦 ConfirmOrder: Confirming order %s", id)

	order, alreadyConfirmed, err := s.repository.Confirm(ctx, id, s.now().In(s.location))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, false, &NotFoundError{OrderID: id}
		}
		return nil, false, &PersistenceError{Op: "confirm order", Err: err}
	}

	if alreadyConfirmed {
		zap.S().Infof("⏭️  ConfirmOrder: Order %s was already confirmed as №%s", id, order.DisplayNumber())
		return order, true, nil
	}

	zap.S().Infof("✅ ConfirmOrder: Order %s confirmed as №%s", id, order.OrderNumber)
	s.dispatch(ctx, EventOrderConfirmed, order)
	return order, false, nil
}

// GetOrder returns the stored order
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, newValidationError(ErrMsgOrderIDRequired)
	}

	order, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &NotFoundError{OrderID: id}
		}
		return nil, &PersistenceError{Op: "get order", Err: err}
	}
	return order, nil
}

func (s *OrderService) dispatch(ctx context.Context, eventType EventType, order *models.Order) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, OrderEvent{Type: eventType, Order: *order})
}

func (s *OrderService) buildOrder(data *models.OrderData) (*models.Order, error) {
	items, err := ParseLineItems(data.RawLineItems())
	if err != nil {
		return nil, err
	}

	fieldErrors := utils.ValidateContact(data.CustomerName, data.Phone, data.Email)

	payment, ok := utils.NormalizePaymentMethod(data.PaymentMethod)
	if !ok {
		fieldErrors["paymentMethod"] = ErrMsgInvalidPayment
	}
	delivery, pickupLocation, ok := utils.NormalizeDeliveryMethod(data.DeliveryMethod)
	if !ok {
		fieldErrors["deliveryMethod"] = ErrMsgInvalidDelivery
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Message: ErrMsgInvalidContactField, Fields: fieldErrors}
	}

	breakdown := pricing.Breakdown(pricing.SubtotalOfLineItems(items))
	if clientSentTotals(data) &&
		(data.Subtotal != breakdown.Subtotal || data.Discount != breakdown.Discount || data.Total != breakdown.Total) {
		zap.S().Warnf("⚠️  CreateOrder: Totals mismatch: client subtotal=%d discount=%d total=%d, computed subtotal=%d discount=%d total=%d",
			data.Subtotal, data.Discount, data.Total, breakdown.Subtotal, breakdown.Discount, breakdown.Total)
		return nil, &ValidationError{
			Message: ErrMsgTotalsMismatch,
			Fields:  map[string]string{"total": ErrMsgTotalsMismatch},
		}
	}

	return &models.Order{
		CustomerName:   strings.TrimSpace(data.CustomerName),
		Phone:          strings.TrimSpace(data.Phone),
		Email:          strings.TrimSpace(data.Email),
		Address:        strings.TrimSpace(data.Address),
		Comment:        strings.TrimSpace(data.Comment),
		PaymentMethod:  payment,
		DeliveryMethod: delivery,
		PickupLocation: pickupLocation,
		LineItems:      items,
		Subtotal:       breakdown.Subtotal,
		DiscountAmount: breakdown.Discount,
		Total:          breakdown.Total,
		Status:         models.OrderStatusCreated,
		CreatedAt:      s.now().UTC(),
	}, nil
}

// clientSentTotals is false for payloads that carry no totals at all;
// those are priced on the server alone.
func clientSentTotals(data *models.OrderData) bool {
	return data.Subtotal != 0 || data.Discount != 0 || data.Total != 0
}

// ParseLineItems decodes the lineItems payload. A JSON-encoded string
// containing the array is accepted as well.
func ParseLineItems(raw json.RawMessage) ([]models.OrderLineItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, newValidationError(ErrMsgEmptyCart)
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, newValidationError(ErrMsgInvalidCartItems)
		}
		raw = bytes.TrimSpace([]byte(encoded))
	}

	var items []models.OrderLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, newValidationError(ErrMsgInvalidCartItems)
	}
	if len(items) == 0 {
		return nil, newValidationError(ErrMsgEmptyCart)
	}

	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, newValidationError(ErrMsgUnknownItem)
		}
		if item.Quantity < 1 {
			return nil, newValidationError(ErrMsgInvalidQuantity)
		}
		if item.UnitPrice < 0 {
			return nil, newValidationError(ErrMsgInvalidPrice)
		}
	}
	return items, nil
}
