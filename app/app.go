package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"giftbox-shop/app/controller"
	"giftbox-shop/app/router"
	"giftbox-shop/config"
	"giftbox-shop/db"
	"giftbox-shop/metrics"
	"giftbox-shop/repository"
	"giftbox-shop/service"
)

// App holds the wired order server
type App struct {
	Handler    http.Handler
	Dispatcher *service.NotificationDispatcher
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database connection
	if err := db.InitDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	loc := orderLocation(cfg)

	// Notification fan-out
	dispatcher := service.NewNotificationDispatcher(service.DispatcherConfig{
		Timeout:     cfg.NotifyTimeout,
		MaxAttempts: cfg.NotifyMaxAttempts,
		BaseBackoff: cfg.NotifyBaseBackoff,
	}, metrics.NewNotificationMetrics(prometheus.DefaultRegisterer))

	email := service.NewEmailNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.ConfirmationURL)
	telegram := service.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, loc)
	sheets, err := newSheetsNotifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher.Register(service.EventOrderCreated, email, telegram, sheets)
	dispatcher.Register(service.EventOrderConfirmed, telegram, sheets)

	// Initialize repository and services
	orderRepo := repository.NewOrderRepository(db.DB)
	orderService := service.NewOrderService(orderRepo, dispatcher, service.WithLocation(loc))
	receiptService := service.NewReceiptService(orderService, cfg.ChromePath, loc)

	// Create controllers
	controllers := &router.Controllers{
		OrderProcessing:   controller.NewOrderProcessingController(orderService),
		OrderConfirmation: controller.NewOrderConfirmationController(orderService),
		Receipt:           controller.NewReceiptController(receiptService),
	}

	// Setup routes using standard http router
	mux := http.NewServeMux()
	router.SetupRoutes(mux, controllers, metrics.NewServerMetrics(prometheus.DefaultRegisterer))

	return &App{Handler: mux, Dispatcher: dispatcher}, nil
}

// newSheetsNotifier prefers the Sheets API when service account credentials
// are configured and falls back to the Apps Script webhook
func newSheetsNotifier(ctx context.Context, cfg *config.Config) (service.Notifier, error) {
	if cfg.GoogleCredentials != "" && cfg.GoogleSheetsID != "" {
		zap.S().Infof("📊 Sheets: Using Sheets API for spreadsheet %s", cfg.GoogleSheetsID)
		return service.NewSheetsAPINotifier(ctx, cfg.GoogleCredentials, cfg.GoogleSheetsID, cfg.SheetName)
	}
	return service.NewSheetsWebhookNotifier(cfg.GoogleScriptURL, cfg.GoogleSheetsID), nil
}

func orderLocation(cfg *config.Config) *time.Location {
	if cfg.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		zap.S().Warnf("⚠️  Unknown ORDER_TIMEZONE %q, using UTC: %v", cfg.TimeZone, err)
		return time.UTC
	}
	return loc
}
