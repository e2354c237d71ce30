package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"giftbox-shop/models"
	"giftbox-shop/utils"
)

// State of the checkout form
type State int

const (
	StateIdle State = iota
	StateBusy
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateBusy:
		return "busy"
	case StateSubmitted:
		return "submitted"
	default:
		return "idle"
	}
}

// Submit button labels
const (
	LabelSubmit    = "Оформить заказ"
	LabelBusy      = "Обработка..."
	LabelSubmitted = "Заказ отправлен"
)

// SuccessMessage is shown once the order has been accepted
const SuccessMessage = "Заказ отправлен. Подтвердите его по email."

var (
	// ErrBelowMinimum is matched by every *BelowMinimumError
	ErrBelowMinimum = errors.New("order below minimum amount")
	// ErrSubmissionInProgress rejects a submit while one is pending
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrAlreadySubmitted rejects a submit after the order was accepted
	ErrAlreadySubmitted = errors.New("order already submitted")
)

// BelowMinimumError carries the alert shown when the cart subtotal is below
// the minimum order amount
type BelowMinimumError struct {
	Minimum  int64
	Subtotal int64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("Минимальная сумма заказа — %d₽. Пожалуйста, добавьте ещё товары.", e.Minimum)
}

func (e *BelowMinimumError) Is(target error) bool {
	return target == ErrBelowMinimum
}

// ValidationError lists the invalid fields and their messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Fields is what the customer typed into the checkout form
type Fields struct {
	CustomerName   string
	Phone          string
	Email          string
	Address        string
	Comment        string
	PaymentMethod  string
	DeliveryMethod string
}

// Field names accepted by ValidateField
const (
	FieldCustomerName = "customerName"
	FieldPhone        = "phone"
	FieldEmail        = "email"
)

// Quoter prices the current cart
type Quoter interface {
	Quote() models.PricingBreakdown
}

// Submitter sends the order to the backend
type Submitter interface {
	Submit(ctx context.Context, fields Fields) (*models.Order, error)
}

// Form drives the checkout screen: minimum order gate, field validation and
// a single pending -> done submission.
type Form struct {
	mu        sync.Mutex
	state     State
	lastError string
	cart      Quoter
	submitter Submitter
	minOrder  int64
}

// NewForm creates a Form in the idle state
func NewForm(cart Quoter, submitter Submitter, minOrder int64) *Form {
	return &Form{
		cart:      cart,
		submitter: submitter,
		minOrder:  minOrder,
	}
}

// Enter is called when the customer opens checkout. It returns the pricing
// to display, or a *BelowMinimumError when the subtotal is too small.
func (f *Form) Enter() (models.PricingBreakdown, error) {
	quote := f.cart.Quote()
	if quote.Subtotal < f.minOrder {
		return quote, &BelowMinimumError{Minimum: f.minOrder, Subtotal: quote.Subtotal}
	}
	return quote, nil
}

// ValidateField validates a single field on blur. Returns "" when valid.
func ValidateField(name, value string) string {
	switch name {
	case FieldCustomerName:
		if !utils.ValidName(value) {
			return utils.ErrMsgNameRequired
		}
	case FieldPhone:
		if !utils.ValidPhone(value) {
			return utils.ErrMsgPhoneInvalid
		}
	case FieldEmail:
		if !utils.ValidEmail(value) {
			return utils.ErrMsgEmailInvalid
		}
	}
	return ""
}

// Validate validates every required field. Returns nil when valid.
func Validate(fields Fields) *ValidationError {
	errs := utils.ValidateContact(fields.CustomerName, fields.Phone, fields.Email)
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// Submit validates the fields and sends the order. Invalid fields never
// reach the network. On failure the form returns to idle with the server's
// message; on success it becomes submitted and cannot be sent again.
func (f *Form) Submit(ctx context.Context, fields Fields) (*models.Order, error) {
	f.mu.Lock()
	switch f.state {
	case StateBusy:
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	case StateSubmitted:
		f.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if verr := Validate(fields); verr != nil {
		f.lastError = verr.Error()
		f.mu.Unlock()
		return nil, verr
	}
	if _, err := f.Enter(); err != nil {
		f.lastError = err.Error()
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateBusy
	f.lastError = ""
	f.mu.Unlock()

	order, err := f.submitter.Submit(ctx, fields)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateIdle
		f.lastError = err.Error()
		return nil, err
	}
	f.state = StateSubmitted
	return order, nil
}

// State returns the current form state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ButtonLabel returns the submit button text for the current state
func (f *Form) ButtonLabel() string {
	switch f.State() {
	case StateBusy:
		return LabelBusy
	case StateSubmitted:
		return LabelSubmitted
	default:
		return LabelSubmit
	}
}

// ButtonDisabled reports whether the submit button is disabled
func (f *Form) ButtonDisabled() bool {
	return f.State() != StateIdle
}

// LastError returns the message of the last failed submit
func (f *Form) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}
