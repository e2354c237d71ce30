package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"giftbox-shop/models"
	"giftbox-shop/pricing"
)

// ErrEmptyCart is returned when submitting with no resolvable cart lines
var ErrEmptyCart = errors.New("корзина пуста")

// SubmissionError carries the backend's error message verbatim
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// Cart is the part of the cart store the submission needs
type Cart interface {
	All() []models.CartLine
	Clear() error
}

// Client sends orders to the backend order-processing endpoint
type Client struct {
	backendURL string
	anonKey    string
	catalog    pricing.ProductLookup
	cart       Cart
	http       *http.Client
}

// NewClient creates a new Client
func NewClient(backendURL, anonKey string, catalog pricing.ProductLookup, cart Cart) *Client {
	return &Client{
		backendURL: strings.TrimRight(backendURL, "/"),
		anonKey:    anonKey,
		catalog:    catalog,
		cart:       cart,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Ensure Client implements Submitter
var _ Submitter = (*Client)(nil)

// BuildOrderData snapshots the cart lines against the catalog and prices
// them. Lines whose product no longer resolves are dropped.
func (c *Client) BuildOrderData(fields Fields, lines []models.CartLine) (*models.OrderData, error) {
	items := make([]models.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		product, ok := c.catalog.Product(line.ProductID)
		if !ok {
			zap.S().Warnf("⚠️  Checkout: Dropping unknown product %q", line.ProductID)
			continue
		}
		color := product.Color
		if line.ColorVariant != "" {
			color = line.ColorVariant
		}
		items = append(items, models.OrderLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Artikul:   product.Artikul,
			Color:     color,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	quote := pricing.Breakdown(pricing.SubtotalOfLineItems(items))
	data := &models.OrderData{
		CustomerName:   strings.TrimSpace(fields.CustomerName),
		Phone:          strings.TrimSpace(fields.Phone),
		Email:          strings.TrimSpace(fields.Email),
		Address:        strings.TrimSpace(fields.Address),
		Comment:        strings.TrimSpace(fields.Comment),
		PaymentMethod:  fields.PaymentMethod,
		DeliveryMethod: fields.DeliveryMethod,
		Subtotal:       quote.Subtotal,
		Discount:       quote.Discount,
		Total:          quote.Total,
	}
	if data.PaymentMethod == "" {
		data.PaymentMethod = models.PaymentCash
	}
	if data.DeliveryMethod == "" {
		data.DeliveryMethod = models.DeliveryCourier
	}
	if err := data.SetLineItems(items); err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}
	return data, nil
}

// Submit posts the current cart as an order. On success the cart is cleared
// and the stored order returned. It is never retried.
func (c *Client) Submit(ctx context.Context, fields Fields) (*models.Order, error) {
	data, err := c.BuildOrderData(fields, c.cart.All())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(models.CreateOrderRequest{OrderData: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+"/order-processing", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	zap.S().Infof("📤 Checkout: Submitting order, total=%d", data.Total)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach order service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read order response: %w", err)
	}

	var result models.OrderResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected response from order service (HTTP %d)", resp.StatusCode),
		}
	}
	if !result.Success {
		message := result.Error
		if message == "" {
			message = fmt.Sprintf("order service returned HTTP %d", resp.StatusCode)
		}
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := c.cart.Clear(); err != nil {
		zap.S().Warnf("⚠️  Checkout: Order accepted but cart could not be cleared: %v", err)
	}
	if result.Order != nil {
		zap.S().Infof("✅ Checkout: Order %s accepted", result.Order.ID)
	}
	return result.Order, nil
}
