package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"giftbox-shop/models"
	"giftbox-shop/service"
)

// OrderConfirmationController handles the confirmation link from the email
// (GET, HTML page) and programmatic confirmation (POST, JSON)
type OrderConfirmationController struct {
	orders service.OrderServiceInterface
}

// NewOrderConfirmationController creates a new OrderConfirmationController
func NewOrderConfirmationController(orders service.OrderServiceInterface) *OrderConfirmationController {
	return &OrderConfirmationController{
		orders: orders,
	}
}

// Confirm handles /order-confirmation
func (c *OrderConfirmationController) Confirm(w http.ResponseWriter, r *http.Request) {
	zap.S().Infof("📥 Confirm: Received %s request to %s", r.Method, r.URL.Path)

	switch r.Method {
	case http.MethodOptions:
		setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		c.confirmFromLink(w, r)
	case http.MethodPost:
		c.confirmFromJSON(w, r)
	default:
		zap.S().Warnf("❌ Confirm: Method not allowed: %s", r.Method)
		writeErrorPage(w, http.StatusMethodNotAllowed, "Метод не поддерживается")
	}
}

// confirmFromLink handles GET /order-confirmation?order_id=<id>
func (c *OrderConfirmationController) confirmFromLink(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		zap.S().Warnf("❌ Confirm: Missing order_id query parameter")
		writeErrorPage(w, http.StatusBadRequest, "ID заказа не указан в ссылке")
		return
	}

	order, alreadyConfirmed, err := c.confirm(r.Context(), orderID)
	if err != nil {
		status, message := confirmErrorStatus(err)
		if status == http.StatusNotFound {
			message = "Заказ не найден в системе"
		}
		writeErrorPage(w, status, message)
		return
	}

	page := confirmationPage{
		Title:       "Заказ подтверждён",
		Message:     fmt.Sprintf("Спасибо! Заказ №%s успешно подтверждён", order.DisplayNumber()),
		OrderNumber: order.DisplayNumber(),
	}
	if alreadyConfirmed {
		page.Title = "Заказ уже подтверждён"
		page.Message = fmt.Sprintf("Заказ №%s уже был подтверждён ранее", order.DisplayNumber())
	}
	writeHTML(w, http.StatusOK, "confirmation.html", page)
}

// confirmFromJSON handles POST /order-confirmation
// Body: {"orderId": "<id>"}
func (c *OrderConfirmationController) confirmFromJSON(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		zap.S().Warnf("❌ Confirm: Failed to decode request body: %v", err)
		writeJSONError(w, http.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		zap.S().Warnf("❌ Confirm: orderId missing in POST body")
		writeJSONError(w, http.StatusBadRequest, "ID заказа не указан")
		return
	}

	order, alreadyConfirmed, err := c.confirm(r.Context(), orderID)
	if err != nil {
		status, message := confirmErrorStatus(err)
		writeJSONError(w, status, message)
		return
	}

	message := "Заказ успешно подтверждён"
	if alreadyConfirmed {
		message = "Заказ уже был подтверждён ранее"
	}
	writeJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: message,
		Order:   order,
	})
}

func (c *OrderConfirmationController) confirm(ctx context.Context, orderID string) (*models.Order, bool, error) {
	order, alreadyConfirmed, err := c.orders.ConfirmOrder(ctx, orderID)
	if err != nil {
		zap.S().Errorf("❌ Confirm: Error confirming order %s: %v", orderID, err)
		return nil, false, err
	}
	return order, alreadyConfirmed, nil
}

// confirmErrorStatus maps service errors to a status code and a
// customer-facing message. Persistence details are not exposed.
func confirmErrorStatus(err error) (int, string) {
	var notFound *service.NotFoundError
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "Заказ не найден"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	default:
		return http.StatusInternalServerError, "Не удалось обновить статус заказа"
	}
}
