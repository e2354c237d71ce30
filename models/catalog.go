package models

// Product represents a catalog entry the storefront sells.
// The same artikul can exist in several colors, each color being its own id.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artikul  string `json:"artikul"`
	Color    string `json:"color"`
	SizeType string `json:"sizeType,omitempty"`
	Price    int64  `json:"price"`
}

// CartLine represents a cart entry persisted by the storefront.
// Unique by (ProductID, ColorVariant); Quantity is always >= 1.
type CartLine struct {
	ProductID    string `json:"productId"`
	ColorVariant string `json:"colorVariant,omitempty"`
	Quantity     int    `json:"quantity"`
}
