package service

import (
	"context"

	"giftbox-shop/models"
)

// OrderServiceInterface defines the order lifecycle operations used by the
// HTTP controllers
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, data *models.OrderData) (*models.Order, error)
	ConfirmOrder(ctx context.Context, id string) (*models.Order, bool, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// Ensure OrderService implements OrderServiceInterface
var _ OrderServiceInterface = (*OrderService)(nil)
