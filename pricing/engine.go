package pricing

import (
	"giftbox-shop/models"
)

// Tier is a volume discount step: orders whose subtotal reaches Threshold get
// Rate percent off.
type Tier struct {
	Threshold int64
	Rate      int
}

// Tiers is the fixed discount table, highest threshold first.
var Tiers = []Tier{
	{Threshold: 50000, Rate: 5},
	{Threshold: 40000, Rate: 4},
	{Threshold: 30000, Rate: 3},
	{Threshold: 20000, Rate: 2},
}

// ProductLookup resolves catalog products by id
type ProductLookup interface {
	Product(id string) (models.Product, bool)
}

// ComputeSubtotal sums price * quantity for every line whose product resolves
// in the catalog. Stale lines referencing removed products contribute 0.
func ComputeSubtotal(lines []models.CartLine, catalog ProductLookup) int64 {
	var subtotal int64
	for _, line := range lines {
		product, ok := catalog.Product(line.ProductID)
		if !ok {
			continue
		}
		subtotal += product.Price * int64(line.Quantity)
	}
	return subtotal
}

// SubtotalOfLineItems sums the snapshotted line items of an order
func SubtotalOfLineItems(items []models.OrderLineItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// ComputeDiscountRate returns the rate of the highest tier whose threshold is
// <= subtotal, or 0.
func ComputeDiscountRate(subtotal int64) int {
	for _, tier := range Tiers {
		if subtotal >= tier.Threshold {
			return tier.Rate
		}
	}
	return 0
}

// ComputeDiscount returns floor(subtotal * rate / 100)
func ComputeDiscount(subtotal int64, rate int) int64 {
	if subtotal <= 0 || rate <= 0 {
		return 0
	}
	return subtotal * int64(rate) / 100
}

// ComputeTotal returns subtotal minus the discount for rate
func ComputeTotal(subtotal int64, rate int) int64 {
	return subtotal - ComputeDiscount(subtotal, rate)
}

// Breakdown computes the full pricing for a subtotal
func Breakdown(subtotal int64) models.PricingBreakdown {
	rate := ComputeDiscountRate(subtotal)
	discount := ComputeDiscount(subtotal, rate)
	return models.PricingBreakdown{
		Subtotal:     subtotal,
		DiscountRate: rate,
		Discount:     discount,
		Total:        subtotal - discount,
	}
}

// Quote prices a cart against the catalog
func Quote(lines []models.CartLine, catalog ProductLookup) models.PricingBreakdown {
	return Breakdown(ComputeSubtotal(lines, catalog))
}
