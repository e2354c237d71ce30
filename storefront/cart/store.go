package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"giftbox-shop/models"
	"giftbox-shop/pricing"
)

const (
	// StorageKey is the key the cart lines are persisted under
	StorageKey = "cart"
	// EventCartChanged is published after every mutation with the new lines
	EventCartChanged = "cart-changed"
)

// Publisher broadcasts cart changes
type Publisher interface {
	Publish(event string, payload any)
}

// Store holds the client-side cart. Every mutation is persisted before it
// is published.
type Store struct {
	mu      sync.Mutex
	storage Storage
	catalog pricing.ProductLookup
	bus     Publisher
	lines   []models.CartLine
}

// NewStore loads the persisted cart. Unreadable stored data starts an empty cart.
func NewStore(storage Storage, catalog pricing.ProductLookup, bus Publisher) (*Store, error) {
	s := &Store{
		storage: storage,
		catalog: catalog,
		bus:     bus,
	}

	raw, found, err := storage.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if found {
		if err := json.Unmarshal(raw, &s.lines); err != nil {
			zap.S().Warnf("⚠️  Cart: Stored cart is corrupt, starting empty: %v", err)
			s.lines = nil
		}
		s.lines = sanitize(s.lines)
	}
	return s, nil
}

// sanitize drops invalid lines and merges duplicates from older stored data
func sanitize(lines []models.CartLine) []models.CartLine {
	var out []models.CartLine
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if i := indexOf(out, line.ProductID, line.ColorVariant); i >= 0 {
			out[i].Quantity += line.Quantity
			continue
		}
		out = append(out, line)
	}
	return out
}

func indexOf(lines []models.CartLine, productID, colorVariant string) int {
	for i, line := range lines {
		if line.ProductID == productID && line.ColorVariant == colorVariant {
			return i
		}
	}
	return -1
}

// Add merges quantity into the (productID, colorVariant) line or appends a
// new one. Unknown products and non-positive quantities are ignored.
func (s *Store) Add(productID, colorVariant string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if quantity <= 0 {
		return nil
	}
	if _, ok := s.catalog.Product(productID); !ok {
		zap.S().Warnf("⚠️  Cart: Ignoring unknown product %q", productID)
		return nil
	}

	return s.mutate(func(lines []models.CartLine) ([]models.CartLine, bool) {
		if i := indexOf(lines, productID, colorVariant); i >= 0 {
			lines[i].Quantity += quantity
			return lines, true
		}
		return append(lines, models.CartLine{ProductID: productID, ColorVariant: colorVariant, Quantity: quantity}), true
	})
}

// Remove deletes the (productID, colorVariant) line. An empty colorVariant
// removes every line of the product.
func (s *Store) Remove(productID, colorVariant string) error {
	productID = strings.TrimSpace(productID)
	return s.mutate(func(lines []models.CartLine) ([]models.CartLine, bool) {
		next := lines[:0]
		for _, line := range lines {
			if line.ProductID == productID && (colorVariant == "" || line.ColorVariant == colorVariant) {
				continue
			}
			next = append(next, line)
		}
		return next, len(next) != len(lines)
	})
}

// SetQuantity sets the quantity of an existing line. quantity <= 0 removes
// exactly that line.
func (s *Store) SetQuantity(productID, colorVariant string, quantity int) error {
	productID = strings.TrimSpace(productID)
	return s.mutate(func(lines []models.CartLine) ([]models.CartLine, bool) {
		i := indexOf(lines, productID, colorVariant)
		if i < 0 {
			return lines, false
		}
		if quantity <= 0 {
			return append(lines[:i], lines[i+1:]...), true
		}
		lines[i].Quantity = quantity
		return lines, true
	})
}

// UpdateQuantity adds delta to an existing line, never going below 1
func (s *Store) UpdateQuantity(productID, colorVariant string, delta int) error {
	productID = strings.TrimSpace(productID)
	return s.mutate(func(lines []models.CartLine) ([]models.CartLine, bool) {
		i := indexOf(lines, productID, colorVariant)
		if i < 0 {
			return lines, false
		}
		lines[i].Quantity = max(1, lines[i].Quantity+delta)
		return lines, true
	})
}

// Clear empties the cart
func (s *Store) Clear() error {
	return s.mutate(func([]models.CartLine) ([]models.CartLine, bool) {
		return nil, true
	})
}

// All returns a copy of the lines in insertion order
func (s *Store) All() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Count returns the number of lines
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Quote prices the current cart
func (s *Store) Quote() models.PricingBreakdown {
	return pricing.Quote(s.All(), s.catalog)
}

func (s *Store) snapshot() []models.CartLine {
	return append([]models.CartLine(nil), s.lines...)
}

// mutate applies fn to a copy of the lines, persists the result and, once
// stored, makes it current. The change is published after the lock is
// released so handlers may read the store.
func (s *Store) mutate(fn func(lines []models.CartLine) ([]models.CartLine, bool)) error {
	s.mu.Lock()
	next, changed := fn(s.snapshot())
	if !changed {
		s.mu.Unlock()
		return nil
	}
	if next == nil {
		next = []models.CartLine{}
	}

	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.storage.Set(StorageKey, raw); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	s.lines = next
	published := s.snapshot()
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(EventCartChanged, published)
	}
	return nil
}
