package router

import (
	"net/http"

	"giftbox-shop/app/controller"
	"giftbox-shop/metrics"
)

type Controllers struct {
	OrderProcessing   *controller.OrderProcessingController
	OrderConfirmation *controller.OrderConfirmationController
	Receipt           *controller.ReceiptController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// SetupRoutes registers every endpoint on mux. serverMetrics may be nil.
func SetupRoutes(mux *http.ServeMux, controllers *Controllers, serverMetrics *metrics.ServerMetrics) {
	instrument := func(name string, h http.HandlerFunc) http.HandlerFunc {
		if serverMetrics == nil {
			return h
		}
		return serverMetrics.Instrument(name, h)
	}

	// Ping endpoint
	mux.HandleFunc("/ping", pingHandler)

	// Prometheus metrics
	mux.Handle("/metrics", metrics.Handler())

	// Order creation from the storefront checkout
	mux.HandleFunc("/order-processing", instrument("order_processing", controllers.OrderProcessing.CreateOrder))

	// Confirmation link (GET) and programmatic confirmation (POST)
	mux.HandleFunc("/order-confirmation", instrument("order_confirmation", controllers.OrderConfirmation.Confirm))

	// Printable order summary
	if controllers.Receipt != nil {
		mux.HandleFunc("/order-receipt", instrument("order_receipt", controllers.Receipt.GetReceipt))
	}
}
