package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"giftbox-shop/models"
	"giftbox-shop/repository"
)

// memoryOrderRepository is an in-memory OrderRepositoryInterface
type memoryOrderRepository struct {
	mu         sync.Mutex
	orders     map[string]models.Order
	counters   map[string]int
	createErr  error
	confirmErr error
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{
		orders:   make(map[string]models.Order),
		counters: make(map[string]int),
	}
}

var _ repository.OrderRepositoryInterface = (*memoryOrderRepository)(nil)

func (r *memoryOrderRepository) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	stored := *order
	r.orders[stored.ID] = stored
	return &stored, nil
}

func (r *memoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &order, nil
}

func (r *memoryOrderRepository) Confirm(_ context.Context, id string, now time.Time) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirmErr != nil {
		return nil, false, r.confirmErr
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, false, repository.ErrOrderNotFound
	}
	if order.IsConfirmed() {
		return &order, true, nil
	}

	day := now.Format("2006-01-02")
	r.counters[day]++
	confirmedAt := now.UTC()
	order.Status = models.OrderStatusConfirmed
	order.ConfirmedAt = &confirmedAt
	order.OrderNumber = repository.FormatOrderNumber(now, r.counters[day])
	r.orders[id] = order
	return &order, false, nil
}

func (r *memoryOrderRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// recordingDispatcher records dispatched events synchronously
type recordingDispatcher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event OrderEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) Events() []OrderEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]OrderEvent(nil), d.events...)
}

func (d *recordingDispatcher) countOf(eventType EventType) int {
	n := 0
	for _, e := range d.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// scriptedNotifier fails the first failures calls with err
type scriptedNotifier struct {
	name     string
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	delay    time.Duration
}

func (n *scriptedNotifier) Name() string { return n.name }

func (n *scriptedNotifier) Notify(ctx context.Context, event OrderEvent) error {
	n.mu.Lock()
	n.calls++
	call := n.calls
	n.mu.Unlock()

	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if call <= n.failures {
		if n.err != nil {
			return n.err
		}
		return fmt.Errorf("%s: temporary failure %d", n.name, call)
	}
	return nil
}

func (n *scriptedNotifier) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

var errDatabaseDown = errors.New("connection refused")
