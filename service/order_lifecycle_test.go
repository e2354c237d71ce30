package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"giftbox-shop/models"
)

type lifecycleTestContext struct {
	repo       *memoryOrderRepository
	dispatcher *NotificationDispatcher
	notifiers  map[string]*scriptedNotifier
	now        time.Time
	service    *OrderService
	order      *models.Order
	already    bool
	err        error
}

func (c *lifecycleTestContext) reset() {
	c.repo = newMemoryOrderRepository()
	c.dispatcher = NewNotificationDispatcher(DispatcherConfig{
		Timeout:     time.Second,
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	}, nil)
	c.notifiers = make(map[string]*scriptedNotifier)
	c.now = time.Now()
	c.service = nil
	c.order = nil
	c.already = false
	c.err = nil
}

func (c *lifecycleTestContext) svc() *OrderService {
	if c.service == nil {
		c.service = NewOrderService(c.repo, c.dispatcher, WithClock(func() time.Time { return c.now }))
	}
	return c.service
}

func (c *lifecycleTestContext) notifier(name string) *scriptedNotifier {
	n, ok := c.notifiers[name]
	if !ok {
		n = &scriptedNotifier{name: name}
		c.notifiers[name] = n
	}
	return n
}

func (c *lifecycleTestContext) theOrderClockReads(value string) error {
	now, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return err
	}
	c.now = now
	return nil
}

func (c *lifecycleTestContext) subscribe(eventType EventType, names string) {
	for _, name := range strings.Split(names, ",") {
		c.dispatcher.Register(eventType, c.notifier(strings.TrimSpace(name)))
	}
}

func (c *lifecycleTestContext) notifiersAreSubscribedToOrderCreation(names string) error {
	c.subscribe(EventOrderCreated, names)
	return nil
}

func (c *lifecycleTestContext) notifiersAreSubscribedToOrderConfirmation(names string) error {
	c.subscribe(EventOrderConfirmed, names)
	return nil
}

func (c *lifecycleTestContext) notifierIsDown(name string) error {
	c.notifier(name).failures = 1000
	return nil
}

func (c *lifecycleTestContext) submit(items []models.OrderLineItem) {
	data := &models.OrderData{
		CustomerName:   "Анна",
		Phone:          "+7 (912) 345-67-89",
		Email:          "anna@example.com",
		PaymentMethod:  "cash",
		DeliveryMethod: "pickup_moscow",
	}
	if items != nil {
		if err := data.SetLineItems(items); err != nil {
			c.err = err
			return
		}
	}
	c.order, c.err = c.svc().CreateOrder(context.Background(), data)
	c.dispatcher.Wait()
}

func (c *lifecycleTestContext) aCustomerSubmitsBoxes(quantity int, productID string, price int) error {
	c.submit([]models.OrderLineItem{{
		ProductID: productID,
		Name:      "Подарочная коробка с лентой",
		Artikul:   productID,
		UnitPrice: int64(price),
		Quantity:  quantity,
	}})
	return nil
}

func (c *lifecycleTestContext) aCustomerSubmitted(quantity int, productID string, price int) error {
	if err := c.aCustomerSubmitsBoxes(quantity, productID, price); err != nil {
		return err
	}
	return c.err
}

func (c *lifecycleTestContext) aCustomerSubmitsAnEmptyCart() error {
	c.submit(nil)
	return nil
}

func (c *lifecycleTestContext) theCustomerConfirmsTheOrder() error {
	if c.order == nil {
		return errors.New("no order was created")
	}
	return c.theCustomerConfirmsOrder(c.order.ID)
}

func (c *lifecycleTestContext) theCustomerConfirmsOrder(id string) error {
	var order *models.Order
	order, c.already, c.err = c.svc().ConfirmOrder(context.Background(), id)
	if order != nil {
		c.order = order
	}
	c.dispatcher.Wait()
	return nil
}

func (c *lifecycleTestContext) theOrderIsStoredWithStatus(status string) error {
	if c.err != nil {
		return fmt.Errorf("expected order but got error: %v", c.err)
	}
	stored, err := c.repo.GetByID(context.Background(), c.order.ID)
	if err != nil {
		return err
	}
	if stored.Status != status {
		return fmt.Errorf("expected status %q, got %q", status, stored.Status)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderStatusIs(status string) error {
	if c.order == nil || c.order.Status != status {
		return fmt.Errorf("expected status %q, got %+v", status, c.order)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderTotalIs(total int) error {
	if c.err != nil {
		return fmt.Errorf("expected order but got error: %v", c.err)
	}
	if c.order.Total != int64(total) {
		return fmt.Errorf("expected total %d, got %d", total, c.order.Total)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderDiscountIs(discount int) error {
	if c.order.DiscountAmount != int64(discount) {
		return fmt.Errorf("expected discount %d, got %d", discount, c.order.DiscountAmount)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderNumberIs(number string) error {
	if c.err != nil {
		return fmt.Errorf("expected confirmation but got error: %v", c.err)
	}
	if c.order.OrderNumber != number {
		return fmt.Errorf("expected order number %q, got %q", number, c.order.OrderNumber)
	}
	return nil
}

func (c *lifecycleTestContext) theLastConfirmationReportedAlreadyConfirmed() error {
	if !c.already {
		return errors.New("expected the order to be reported as already confirmed")
	}
	return nil
}

func (c *lifecycleTestContext) theSubmissionIsRejectedWith(message string) error {
	var verr *ValidationError
	if !errors.As(c.err, &verr) {
		return fmt.Errorf("expected validation error, got %v", c.err)
	}
	if !strings.Contains(verr.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %q", message, verr.Error())
	}
	return nil
}

func (c *lifecycleTestContext) noOrderIsStored() error {
	if n := c.repo.count(); n != 0 {
		return fmt.Errorf("expected no stored orders, got %d", n)
	}
	return nil
}

func (c *lifecycleTestContext) wasNotified(name string, times int) error {
	if calls := c.notifier(name).Calls(); calls != times {
		return fmt.Errorf("expected %s to be notified %d time(s), got %d", name, times, calls)
	}
	return nil
}

func (c *lifecycleTestContext) theConfirmationFailsAsNotFound() error {
	var nf *NotFoundError
	if !errors.As(c.err, &nf) {
		return fmt.Errorf("expected not found error, got %v", c.err)
	}
	return nil
}

func InitializeLifecycleScenario(ctx *godog.ScenarioContext) {
	tc := &lifecycleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^the order clock reads "([^"]*)"$`, tc.theOrderClockReads)
	ctx.Step(`^notifiers "([^"]*)" are subscribed to order creation$`, tc.notifiersAreSubscribedToOrderCreation)
	ctx.Step(`^notifiers "([^"]*)" are subscribed to order confirmation$`, tc.notifiersAreSubscribedToOrderConfirmation)
	ctx.Step(`^notifier "([^"]*)" is down$`, tc.notifierIsDown)

	ctx.Step(`^a customer submits (\d+) box(?:es)? of "([^"]*)" at (\d+) each$`, tc.aCustomerSubmitsBoxes)
	ctx.Step(`^a customer submitted (\d+) box(?:es)? of "([^"]*)" at (\d+) each$`, tc.aCustomerSubmitted)
	ctx.Step(`^a customer submits an empty cart$`, tc.aCustomerSubmitsAnEmptyCart)
	ctx.Step(`^the customer confirms the order$`, tc.theCustomerConfirmsTheOrder)
	ctx.Step(`^the customer confirms order "([^"]*)"$`, tc.theCustomerConfirmsOrder)

	ctx.Step(`^the order is stored with status "([^"]*)"$`, tc.theOrderIsStoredWithStatus)
	ctx.Step(`^the order status is "([^"]*)"$`, tc.theOrderStatusIs)
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^the order discount is (\d+)$`, tc.theOrderDiscountIs)
	ctx.Step(`^the order number is "([^"]*)"$`, tc.theOrderNumberIs)
	ctx.Step(`^the last confirmation reported "already confirmed"$`, tc.theLastConfirmationReportedAlreadyConfirmed)
	ctx.Step(`^the submission is rejected with "([^"]*)"$`, tc.theSubmissionIsRejectedWith)
	ctx.Step(`^no order is stored$`, tc.noOrderIsStored)
	ctx.Step(`^"([^"]*)" was notified (\d+) times?$`, tc.wasNotified)
	ctx.Step(`^the confirmation fails as not found$`, tc.theConfirmationFailsAsNotFound)
}

func TestOrderLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/order_lifecycle.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
