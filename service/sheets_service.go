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
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsWebhookNotifier mirrors orders into a spreadsheet through a Google
// Apps Script web app that upserts the row keyed by the order id.
type SheetsWebhookNotifier struct {
	scriptURL string
	sheetID   string
	client    *http.Client
}

// NewSheetsWebhookNotifier creates a new SheetsWebhookNotifier
func NewSheetsWebhookNotifier(scriptURL, sheetID string) *SheetsWebhookNotifier {
	return &SheetsWebhookNotifier{
		scriptURL: scriptURL,
		sheetID:   sheetID,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Ensure SheetsWebhookNotifier implements Notifier
var _ Notifier = (*SheetsWebhookNotifier)(nil)

func (n *SheetsWebhookNotifier) Name() string { return "sheets" }

type sheetsWebhookRequest struct {
	SheetID   string `json:"sheetId"`
	Action    string `json:"action"`
	OrderData []any  `json:"orderData"`
}

// Notify posts the order row to the script
func (n *SheetsWebhookNotifier) Notify(ctx context.Context, event OrderEvent) error {
	if n.scriptURL == "" || n.sheetID == "" {
		return fmt.Errorf("%w: missing script URL or sheet ID", ErrNotifierNotConfigured)
	}

	row, err := SheetRow(&event.Order)
	if err != nil {
		return Permanent(err)
	}
	body, err := json.Marshal(sheetsWebhookRequest{
		SheetID:   n.sheetID,
		Action:    "addOrUpdateOrder",
		OrderData: row,
	})
	if err != nil {
		return Permanent(fmt.Errorf("failed to encode sheets request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.scriptURL, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("failed to build sheets request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sheets script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("sheets script returned HTTP %d: %s", resp.StatusCode, respBody)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}

	zap.S().Infof("📊 Sheets: Row for order %s upserted via script (%s)", event.Order.ID, event.Type)
	return nil
}

// SheetsAPINotifier writes the order row with the Sheets API directly,
// authenticated with a service account.
type SheetsAPINotifier struct {
	client        *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsAPINotifier creates a Sheets API client. credentialsPath should be
// the path to the Service Account JSON file; extra options are appended
// after it (tests pass an endpoint and disable auth).
func NewSheetsAPINotifier(ctx context.Context, credentialsPath, spreadsheetID, sheetName string, opts ...option.ClientOption) (*SheetsAPINotifier, error) {
	clientOpts := opts
	if credentialsPath != "" {
		clientOpts = append([]option.ClientOption{option.WithCredentialsFile(credentialsPath)}, opts...)
	}

	client, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsAPINotifier{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Ensure SheetsAPINotifier implements Notifier
var _ Notifier = (*SheetsAPINotifier)(nil)

func (n *SheetsAPINotifier) Name() string { return "sheets" }

// Notify updates the row whose column A holds the order id, or appends one
func (n *SheetsAPINotifier) Notify(ctx context.Context, event OrderEvent) error {
	row, err := SheetRow(&event.Order)
	if err != nil {
		return Permanent(err)
	}
	values := &sheets.ValueRange{Values: [][]any{row}}

	rowNumber, err := n.findRow(ctx, event.Order.ID)
	if err != nil {
		return err
	}

	if rowNumber > 0 {
		rng := fmt.Sprintf("%s!A%d:N%d", n.quotedSheet(), rowNumber, rowNumber)
		_, err = n.client.Spreadsheets.Values.Update(n.spreadsheetID, rng, values).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to update sheet row %d: %w", rowNumber, err)
		}
		zap.S().Infof("📊 Sheets: Updated row %d for order %s (%s)", rowNumber, event.Order.ID, event.Type)
		return nil
	}

	_, err = n.client.Spreadsheets.Values.Append(n.spreadsheetID, n.quotedSheet()+"!A:N", values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append sheet row: %w", err)
	}
	zap.S().Infof("📊 Sheets: Appended row for order %s (%s)", event.Order.ID, event.Type)
	return nil
}

// findRow returns the 1-based row number holding orderID in column A, 0 if none
func (n *SheetsAPINotifier) findRow(ctx context.Context, orderID string) (int, error) {
	resp, err := n.client.Spreadsheets.Values.Get(n.spreadsheetID, n.quotedSheet()+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read order ids: %w", err)
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id == orderID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (n *SheetsAPINotifier) quotedSheet() string {
	return "'" + n.sheetName + "'"
}
