package service

import (
	"context"

	"giftbox-shop/models"
)

// ReceiptServiceInterface defines the receipt rendering operations
type ReceiptServiceInterface interface {
	RenderHTML(ctx context.Context, orderID string) (*models.Order, string, error)
	GeneratePDF(ctx context.Context, orderID string) (*models.Order, []byte, error)
}

// Ensure ReceiptService implements ReceiptServiceInterface
var _ ReceiptServiceInterface = (*ReceiptService)(nil)
