package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"giftbox-shop/models"
)

// ErrRendererUnavailable is returned when no Chrome/Chromium binary is found
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// OrderGetter loads a stored order
type OrderGetter interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// ReceiptService renders printable order summaries
type ReceiptService struct {
	orders     OrderGetter
	chromePath string
	location   *time.Location
}

// NewReceiptService creates a new ReceiptService. chromePath may be empty,
// in which case common installation paths are probed.
func NewReceiptService(orders OrderGetter, chromePath string, loc *time.Location) *ReceiptService {
	return &ReceiptService{
		orders:     orders,
		chromePath: chromePath,
		location:   loc,
	}
}

// detectChromePath returns the configured binary when it exists, then
// checks common installation paths
func (s *ReceiptService) detectChromePath() string {
	if s.chromePath != "" {
		if _, err := os.Stat(s.chromePath); err == nil {
			return s.chromePath
		}
	}

	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// RenderHTML loads the order and renders its summary page
func (s *ReceiptService) RenderHTML(ctx context.Context, orderID string) (*models.Order, string, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	html, err := RenderReceiptHTML(order, s.location)
	if err != nil {
		return nil, "", err
	}
	return order, html, nil
}

// GeneratePDF renders the order summary and prints it to an A4 PDF
func (s *ReceiptService) GeneratePDF(ctx context.Context, orderID string) (*models.Order, []byte, error) {
	order, html, err := s.RenderHTML(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	chromePath := s.detectChromePath()
	if chromePath == "" {
		zap.S().Warnf("⚠️  GeneratePDF: No Chrome/Chromium binary found")
		return order, nil, ErrRendererUnavailable
	}

	// Create context with timeout (30 seconds)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.NoSandbox, // Required for running in Docker/containers
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	chromedpCtx, chromedpCancel := chromedp.NewContext(allocCtx)
	defer chromedpCancel()

	var pdfBuf []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 = 8.27" x 11.69"; margins come from the @page rule
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return order, nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	zap.S().Infof("✅ GeneratePDF: Receipt for order %s rendered (%d bytes)", order.ID, len(pdfBuf))
	return order, pdfBuf, nil
}
