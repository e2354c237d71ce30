package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"giftbox-shop/service"
)

// ReceiptController serves printable order summaries
type ReceiptController struct {
	receipts service.ReceiptServiceInterface
}

// NewReceiptController creates a new ReceiptController
func NewReceiptController(receipts service.ReceiptServiceInterface) *ReceiptController {
	return &ReceiptController{
		receipts: receipts,
	}
}

// GetReceipt handles GET /order-receipt?order_id=<id>[&format=html]
// Returns a PDF by default
func (c *ReceiptController) GetReceipt(w http.ResponseWriter, r *http.Request) {
	zap.S().Infof("📥 GetReceipt: Received %s request to %s", r.Method, r.URL.Path)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		http.Error(w, "order_id query parameter is required", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		_, html, err := c.receipts.RenderHTML(r.Context(), orderID)
		if err != nil {
			c.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
		return
	}

	order, pdf, err := c.receipts.GeneratePDF(r.Context(), orderID)
	if err != nil {
		c.writeError(w, err)
		return
	}

	zap.S().Infof("✅ GetReceipt: Sending receipt for order %s (%d bytes)", order.ID, len(pdf))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"order-%s.pdf\"", order.DisplayNumber()))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (c *ReceiptController) writeError(w http.ResponseWriter, err error) {
	var notFound *service.NotFoundError
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &notFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrRendererUnavailable):
		http.Error(w, "PDF rendering is not available", http.StatusServiceUnavailable)
	default:
		zap.S().Errorf("❌ GetReceipt: Error rendering receipt: %v", err)
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
	}
}
