package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings shared by the order server and the storefront CLI.
// Every value comes from the environment (optionally loaded from .env).
type Config struct {
	Env  string
	Port string

	// Backend the storefront talks to
	BackendURL     string
	BackendAnonKey string

	// Minimum cart subtotal required to enter checkout
	MinOrderAmount int64

	// Public site URL used to build the confirmation link embedded in emails
	PublicSiteURL string

	// Email (Resend)
	ResendAPIKey string
	EmailFrom    string

	// Chat notifications (Telegram bot)
	TelegramToken  string
	TelegramChatID string

	// Spreadsheet mirror
	GoogleScriptURL   string
	GoogleSheetsID    string
	GoogleCredentials string
	SheetName         string

	// Fan-out tuning
	NotifyTimeout     time.Duration
	NotifyMaxAttempts int
	NotifyBaseBackoff time.Duration

	// Storefront CLI
	CartPath    string
	CatalogPath string

	// Receipt rendering
	ChromePath string

	// Time zone of the daily order number sequence and of displayed times
	TimeZone string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	minOrder, err := getenvInt("MIN_ORDER_AMOUNT", 10000)
	if err != nil {
		return nil, err
	}
	attempts, err := getenvInt("NOTIFY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	timeout, err := getenvDuration("NOTIFY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	backoff, err := getenvDuration("NOTIFY_BASE_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	port := getenv("PORT", "8080")
	// Remove leading colon if present (some platforms inject ":8080")
	port = strings.TrimPrefix(port, ":")

	cfg := &Config{
		Env:               getenv("ENV", "development"),
		Port:              port,
		BackendURL:        strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8080"), "/"),
		BackendAnonKey:    os.Getenv("BACKEND_ANON_KEY"),
		MinOrderAmount:    int64(minOrder),
		PublicSiteURL:     strings.TrimRight(os.Getenv("PUBLIC_SITE_URL"), "/"),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		EmailFrom:         getenv("EMAIL_FROM", "Подтверждение заказа <onboarding@resend.dev>"),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		GoogleScriptURL:   os.Getenv("GOOGLE_SCRIPT_URL"),
		GoogleSheetsID:    os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		SheetName:         getenv("GOOGLE_SHEET_NAME", "Заказы"),
		NotifyTimeout:     timeout,
		NotifyMaxAttempts: attempts,
		NotifyBaseBackoff: backoff,
		CartPath:          getenv("CART_PATH", ".storefront/cart.json"),
		CatalogPath:       getenv("CATALOG_PATH", "catalog.json"),
		ChromePath:        os.Getenv("CHROME_PATH"),
		TimeZone:          getenv("ORDER_TIMEZONE", "Europe/Moscow"),
	}

	if cfg.PublicSiteURL == "" {
		cfg.PublicSiteURL = cfg.BackendURL
	}
	if cfg.NotifyMaxAttempts < 1 {
		cfg.NotifyMaxAttempts = 1
	}

	return cfg, nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ConfirmationURL builds the link embedded in the confirmation email
func (c *Config) ConfirmationURL(orderID string) string {
	return c.PublicSiteURL + "/order-confirmation?order_id=" + orderID
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
