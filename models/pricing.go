package models

// PricingBreakdown represents the complete pricing calculation result
type PricingBreakdown struct {
	Subtotal     int64 `json:"subtotal"`     // Sum of unitPrice * quantity
	DiscountRate int   `json:"discountRate"` // Percent: 0, 2, 3, 4 or 5
	Discount     int64 `json:"discount"`     // floor(subtotal * rate / 100)
	Total        int64 `json:"total"`        // subtotal - discount
}
