package repository

import (
	"context"
	"errors"
	"time"

	"giftbox-shop/models"
)

// ErrOrderNotFound is returned when no order matches the requested id
var ErrOrderNotFound = errors.New("order not found")

// OrderRepositoryInterface defines the contract for order persistence.
// Orders are append-only: there is no delete.
type OrderRepositoryInterface interface {
	// Create persists a new order with status "created"
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetByID returns ErrOrderNotFound when the order does not exist
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Confirm transitions created -> confirmed, assigning the next order
	// number of the day. alreadyConfirmed is true (and nothing is written)
	// when the order was confirmed before.
	Confirm(ctx context.Context, id string, now time.Time) (order *models.Order, alreadyConfirmed bool, err error)
}
