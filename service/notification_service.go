package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"giftbox-shop/metrics"
	"giftbox-shop/models"
)

// EventType identifies an order lifecycle event
type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventOrderConfirmed EventType = "order_confirmed"
)

// OrderEvent carries a snapshot of the order after the state change
type OrderEvent struct {
	Type  EventType
	Order models.Order
}

// Notifier delivers an order event to one external system
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event OrderEvent) error
}

// ErrNotifierNotConfigured is returned by notifiers missing credentials.
// The dispatcher records it as skipped and does not retry.
var ErrNotifierNotConfigured = errors.New("notifier not configured")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (e.g. a 4xx from the provider)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DispatcherConfig bounds every trigger
type DispatcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

// NotificationDispatcher runs the notifiers registered for an event
// concurrently, retries each one with exponential backoff and waits for all
// of them. Failures are logged and counted, never returned to the caller.
type NotificationDispatcher struct {
	cfg     DispatcherConfig
	metrics *metrics.NotificationMetrics
	routes  map[EventType][]Notifier
	wg      sync.WaitGroup
}

// NewNotificationDispatcher creates a dispatcher. m may be nil.
func NewNotificationDispatcher(cfg DispatcherConfig, m *metrics.NotificationMetrics) *NotificationDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if m == nil {
		m = metrics.NewNotificationMetrics(nil)
	}
	return &NotificationDispatcher{
		cfg:     cfg,
		metrics: m,
		routes:  make(map[EventType][]Notifier),
	}
}

// Register subscribes notifiers to an event type. Not safe to call
// concurrently with Dispatch.
func (d *NotificationDispatcher) Register(eventType EventType, notifiers ...Notifier) {
	d.routes[eventType] = append(d.routes[eventType], notifiers...)
}

// Dispatch starts the fan-out in the background and returns immediately.
// The fan-out outlives the request: cancellation of ctx is not propagated.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event OrderEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Deliver(context.WithoutCancel(ctx), event)
	}()
}

// Wait blocks until every background fan-out has finished
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

// Deliver runs the fan-out synchronously and returns one NotificationError
// per failed notifier.
func (d *NotificationDispatcher) Deliver(ctx context.Context, event OrderEvent) []error {
	notifiers := d.routes[event.Type]
	if len(notifiers) == 0 {
		return nil
	}

	errs := make([]error, len(notifiers))
	var wg sync.WaitGroup
	for i, n := range notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			errs[i] = d.deliverOne(ctx, n, event)
		}(i, n)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	zap.S().Infof("📣 Deliver: %s for order %s finished, %d/%d notifier(s) failed",
		event.Type, event.Order.ID, len(failed), len(notifiers))
	return failed
}

func (d *NotificationDispatcher) deliverOne(ctx context.Context, n Notifier, event OrderEvent) error {
	var err error
	attempt := 0
	for attempt < d.cfg.MaxAttempts {
		attempt++
		d.metrics.Attempts.WithLabelValues(n.Name()).Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		err = n.Notify(attemptCtx, event)
		cancel()

		if err == nil {
			zap.S().Infof("✅ %s: %s delivered for order %s (attempt %d)", n.Name(), event.Type, event.Order.ID, attempt)
			d.metrics.Outcomes.WithLabelValues(n.Name(), string(event.Type), metrics.OutcomeSuccess).Inc()
			return nil
		}
		if errors.Is(err, ErrNotifierNotConfigured) {
			zap.S().Infof("⏭️  %s: skipped for order %s: %v", n.Name(), event.Order.ID, err)
			d.metrics.Outcomes.WithLabelValues(n.Name(), string(event.Type), metrics.OutcomeSkipped).Inc()
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			break
		}
		if attempt < d.cfg.MaxAttempts {
			zap.S().Warnf("⚠️  %s: attempt %d for order %s failed: %v", n.Name(), attempt, event.Order.ID, err)
			if sleepErr := sleepContext(ctx, d.backoff(attempt)); sleepErr != nil {
				break
			}
		}
	}

	notifyErr := &NotificationError{
		Notifier: n.Name(),
		Event:    event.Type,
		OrderID:  event.Order.ID,
		Attempts: attempt,
		Err:      err,
	}
	zap.S().Errorf("❌ %v", notifyErr)
	d.metrics.Outcomes.WithLabelValues(n.Name(), string(event.Type), metrics.OutcomeFailure).Inc()
	return notifyErr
}

// backoff returns base * 2^(attempt-1)
func (d *NotificationDispatcher) backoff(attempt int) time.Duration {
	return d.cfg.BaseBackoff << (attempt - 1)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
