package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"giftbox-shop/models"
	"giftbox-shop/service"
)

// OrderProcessingController handles order creation requests from the storefront
type OrderProcessingController struct {
	orders service.OrderServiceInterface
}

// NewOrderProcessingController creates a new OrderProcessingController
func NewOrderProcessingController(orders service.OrderServiceInterface) *OrderProcessingController {
	return &OrderProcessingController{
		orders: orders,
	}
}

// CreateOrder handles POST /order-processing
// Body: {"orderData": {...}}
func (c *OrderProcessingController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	zap.S().Infof("📥 CreateOrder: Received %s request to %s", r.Method, r.URL.Path)

	if r.Method == http.MethodOptions {
		setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Only allow POST method
	if r.Method != http.MethodPost {
		zap.S().Warnf("❌ CreateOrder: Method not allowed: %s", r.Method)
		writeJSONError(w, http.StatusMethodNotAllowed, "Метод не поддерживается")
		return
	}

	// Parse request body
	var req models.CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		zap.S().Warnf("❌ CreateOrder: Failed to decode request body: %v", err)
		writeJSONError(w, http.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	order, err := c.orders.CreateOrder(r.Context(), req.OrderData)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			writeJSONError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		zap.S().Errorf("❌ CreateOrder: Error creating order: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось сохранить заказ")
		return
	}

	zap.S().Infof("✅ CreateOrder: Order %s accepted", order.ID)
	writeJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Заказ успешно создан и обработан",
		Order:   order,
	})
}
