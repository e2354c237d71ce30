package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const resendBaseURL = "https://api.resend.com"

// EmailNotifier sends the confirmation request email through the Resend API
type EmailNotifier struct {
	apiKey          string
	from            string
	baseURL         string
	client          *http.Client
	confirmationURL func(orderID string) string
}

// NewEmailNotifier creates a new EmailNotifier. An empty apiKey makes every
// Notify call report ErrNotifierNotConfigured.
func NewEmailNotifier(apiKey, from string, confirmationURL func(orderID string) string) *EmailNotifier {
	return &EmailNotifier{
		apiKey:          apiKey,
		from:            from,
		baseURL:         resendBaseURL,
		confirmationURL: confirmationURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithBaseURL points the notifier at another Resend-compatible endpoint
func (n *EmailNotifier) WithBaseURL(baseURL string) *EmailNotifier {
	n.baseURL = baseURL
	return n
}

// Ensure EmailNotifier implements Notifier
var _ Notifier = (*EmailNotifier)(nil)

func (n *EmailNotifier) Name() string { return "email" }

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Notify emails the itemised order summary with the confirmation link
func (n *EmailNotifier) Notify(ctx context.Context, event OrderEvent) error {
	if n.apiKey == "" {
		return fmt.Errorf("%w: RESEND_API_KEY not set", ErrNotifierNotConfigured)
	}

	order := event.Order
	html, err := RenderOrderEmail(&order, n.confirmationURL(order.ID))
	if err != nil {
		return Permanent(err)
	}

	body, err := json.Marshal(sendEmailRequest{
		From:    n.from,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("Подтвердите ваш заказ №%s", order.ID),
		HTML:    html,
	})
	if err != nil {
		return Permanent(fmt.Errorf("failed to encode email request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("failed to build email request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("resend returned %d: %s", resp.StatusCode, respBody)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}

	zap.S().Infof("✉️  Email: Confirmation request sent to %s for order %s", order.Email, order.ID)
	return nil
}
