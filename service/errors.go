package service

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is returned when an order payload is rejected.
// Fields maps the offending field to a user-facing message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	if e.Message == "" {
		return strings.Join(parts, "; ")
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when an order id does not exist
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// PersistenceError wraps a storage failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationError wraps a failed notification trigger. It is logged and
// counted but never returned to HTTP callers.
type NotificationError struct {
	Notifier string
	Event    EventType
	OrderID  string
	Attempts int
	Err      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification for %s order %s failed after %d attempt(s): %v",
		e.Notifier, e.Event, e.OrderID, e.Attempts, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
