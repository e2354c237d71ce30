package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramNotifier posts order summaries to a chat through the Bot API
type TelegramNotifier struct {
	token    string
	chatID   string
	baseURL  string
	location *time.Location
	client   *http.Client
}

// NewTelegramNotifier creates a new TelegramNotifier
func NewTelegramNotifier(token, chatID string, loc *time.Location) *TelegramNotifier {
	return &TelegramNotifier{
		token:    token,
		chatID:   chatID,
		baseURL:  telegramBaseURL,
		location: loc,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithBaseURL points the notifier at another Bot API endpoint
func (n *TelegramNotifier) WithBaseURL(baseURL string) *TelegramNotifier {
	n.baseURL = baseURL
	return n
}

// Ensure TelegramNotifier implements Notifier
var _ Notifier = (*TelegramNotifier)(nil)

func (n *TelegramNotifier) Name() string { return "telegram" }

type telegramSendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends the Markdown summary for the event
func (n *TelegramNotifier) Notify(ctx context.Context, event OrderEvent) error {
	if n.token == "" || n.chatID == "" {
		return fmt.Errorf("%w: missing token or chat ID", ErrNotifierNotConfigured)
	}

	body, err := json.Marshal(telegramSendMessage{
		ChatID:    n.chatID,
		Text:      BuildTelegramMessage(event, n.location),
		ParseMode: "Markdown",
	})
	if err != nil {
		return Permanent(fmt.Errorf("failed to encode telegram message: %w", err))
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("failed to build telegram request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// url.Error would print the bot token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("failed to reach telegram API: %w", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var result telegramResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK || !result.OK {
		description := result.Description
		switch {
		case readErr != nil:
			description = fmt.Sprintf("failed to read response: %v", readErr)
		case decodeErr != nil:
			description = fmt.Sprintf("undecodable response %q", raw)
		case description == "":
			description = "Неизвестная ошибка"
		}
		err := fmt.Errorf("telegram API error %d: %s", resp.StatusCode, description)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}
	return nil
}
