package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"giftbox-shop/models"
)

const orderColumns = `
	id::text, customer_name, phone, email, address, comment,
	payment_method, delivery_method, pickup_location, line_items,
	subtotal, discount_amount, total, status, created_at, confirmed_at, order_number
`

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(conn *sql.DB) *OrderRepository {
	return &OrderRepository{db: conn}
}

// Ensure OrderRepository implements OrderRepositoryInterface
var _ OrderRepositoryInterface = (*OrderRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new order. The id is generated here when empty.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	zap.S().Infof("📦 Create: Creating order id=%s for %s, total=%d", order.ID, order.Email, order.Total)

	lineItems, err := json.Marshal(order.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}

	query := `
		INSERT INTO orders (id, customer_name, phone, email, address, comment,
		                    payment_method, delivery_method, pickup_location, line_items,
		                    subtotal, discount_amount, total, status, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14, $15)
		RETURNING ` + orderColumns

	row := r.db.QueryRowContext(ctx, query,
		order.ID,
		order.CustomerName,
		order.Phone,
		order.Email,
		nullString(order.Address),
		nullString(order.Comment),
		order.PaymentMethod,
		order.DeliveryMethod,
		nullString(order.PickupLocation),
		string(lineItems),
		order.Subtotal,
		order.DiscountAmount,
		order.Total,
		models.OrderStatusCreated,
		order.CreatedAt,
	)

	created, err := scanOrder(row)
	if err != nil {
		zap.S().Errorf("❌ Create: Error creating order: %v", err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	zap.S().Infof("✅ Create: Successfully created order id=%s", created.ID)
	return created, nil
}

// GetByID retrieves an order by id
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	zap.S().Infof("📦 GetByID: Fetching order id=%s", id)

	if _, err := uuid.Parse(id); err != nil {
		zap.S().Warnf("❌ GetByID: Malformed order id: %q", id)
		return nil, ErrOrderNotFound
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1::uuid`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Warnf("❌ GetByID: Order not found: id=%s", id)
			return nil, ErrOrderNotFound
		}
		zap.S().Errorf("❌ GetByID: Error fetching order: %v", err)
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	return order, nil
}

// Confirm marks the order as confirmed and assigns its order number.
// The order row is locked for the whole transaction and the per-day sequence
// comes from an upsert-with-increment, so concurrent confirmations never
// share a number and a second confirmation sees the first one's result.
func (r *OrderRepository) Confirm(ctx context.Context, id string, now time.Time) (*models.Order, bool, error) {
	zap.S().Infof("📦 Confirm: Confirming order id=%s", id)

	if _, err := uuid.Parse(id); err != nil {
		zap.S().Warnf("❌ Confirm: Malformed order id: %q", id)
		return nil, false, ErrOrderNotFound
	}

	// Start transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		zap.S().Errorf("❌ Confirm: Error starting transaction: %v", err)
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	queryOrder := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1::uuid FOR UPDATE`
	order, err := scanOrder(tx.QueryRowContext(ctx, queryOrder, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Warnf("❌ Confirm: Order not found: id=%s", id)
			return nil, false, ErrOrderNotFound
		}
		zap.S().Errorf("❌ Confirm: Error fetching order: %v", err)
		return nil, false, fmt.Errorf("failed to fetch order: %w", err)
	}

	if order.IsConfirmed() {
		zap.S().Infof("⏭️  Confirm: Order already confirmed: id=%s, number=%s", id, order.OrderNumber)
		return order, true, nil
	}

	day := now.Format("2006-01-02")
	querySequence := `
		INSERT INTO order_number_counters (day, last_value)
		VALUES ($1::date, 1)
		ON CONFLICT (day)
		DO UPDATE SET last_value = order_number_counters.last_value + 1
		RETURNING last_value
	`
	var sequence int
	if err := tx.QueryRowContext(ctx, querySequence, day).Scan(&sequence); err != nil {
		zap.S().Errorf("❌ Confirm: Error allocating order number: %v", err)
		return nil, false, fmt.Errorf("failed to allocate order number: %w", err)
	}
	orderNumber := FormatOrderNumber(now, sequence)

	queryUpdate := `
		UPDATE orders
		SET status = $2, confirmed_at = $3, order_number = $4
		WHERE id = $1::uuid AND status = $5
		RETURNING ` + orderColumns

	confirmed, err := scanOrder(tx.QueryRowContext(ctx, queryUpdate,
		id, models.OrderStatusConfirmed, now.UTC(), orderNumber, models.OrderStatusCreated))
	if err != nil {
		zap.S().Errorf("❌ Confirm: Error updating order: %v", err)
		return nil, false, fmt.Errorf("failed to update order status: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		zap.S().Errorf("❌ Confirm: Error committing transaction: %v", err)
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.S().Infof("✅ Confirm: Order id=%s confirmed as №%s", id, orderNumber)
	return confirmed, false, nil
}

// FormatOrderNumber builds the YYYY-MM-DD-N order number
func FormatOrderNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("%s-%d", day.Format("2006-01-02"), sequence)
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var address, comment, pickupLocation, orderNumber sql.NullString
	var confirmedAt sql.NullTime
	var lineItems []byte

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.Phone,
		&order.Email,
		&address,
		&comment,
		&order.PaymentMethod,
		&order.DeliveryMethod,
		&pickupLocation,
		&lineItems,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.Total,
		&order.Status,
		&order.CreatedAt,
		&confirmedAt,
		&orderNumber,
	)
	if err != nil {
		return nil, err
	}

	if address.Valid {
		order.Address = address.String
	}
	if comment.Valid {
		order.Comment = comment.String
	}
	if pickupLocation.Valid {
		order.PickupLocation = pickupLocation.String
	}
	if orderNumber.Valid {
		order.OrderNumber = orderNumber.String
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		order.ConfirmedAt = &t
	}
	if err := json.Unmarshal(lineItems, &order.LineItems); err != nil {
		return nil, fmt.Errorf("failed to decode line items: %w", err)
	}

	return &order, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
