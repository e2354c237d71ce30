package utils

import (
	"strings"
)

// NormalizeDeliveryMethod maps the delivery value sent by the checkout form
// to the stored vocabulary {delivery, pickup}.
// Input is normalized to lowercase before mapping.
// Returns the method and, for specific pickup points, the original value so it
// can be kept next to the order. Empty input defaults to "delivery".
// ok is false when the value is not recognised.
func NormalizeDeliveryMethod(value string) (method string, pickupLocation string, ok bool) {
	valueLower := strings.ToLower(strings.TrimSpace(value))

	switch {
	case valueLower == "" || valueLower == "delivery":
		return "delivery", "", true
	case valueLower == "pickup":
		return "pickup", "", true
	case strings.HasPrefix(valueLower, "pickup_"):
		return "pickup", valueLower, true
	}
	return "", "", false
}

// NormalizePaymentMethod maps the payment value to {cash, transfer}
func NormalizePaymentMethod(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cash":
		return "cash", true
	case "transfer":
		return "transfer", true
	}
	return "", false
}

// MapPaymentToLabel maps a payment method code to its customer facing label
func MapPaymentToLabel(code string) string {
	if code == "cash" {
		return "Наличными"
	}
	return "Перевод"
}

// MapDeliveryToLabel maps a delivery method code to its customer facing label
func MapDeliveryToLabel(code string) string {
	if code == "delivery" {
		return "Курьер"
	}
	return "Самовывоз"
}

// MapPickupLocationToLabel maps a pickup point code to its address.
// Unknown codes are returned as-is.
func MapPickupLocationToLabel(code string) string {
	pickupMap := map[string]string{
		"pickup_moscow":  "Москва, Производственная 12, к.2, подъезд 11",
		"pickup_ershovo": "Московская область, Одинцовский район, д. Ершово, \"Парк-отель Ершово\"",
	}

	if label, exists := pickupMap[strings.ToLower(strings.TrimSpace(code))]; exists {
		return label
	}
	return code
}

// OrDefault returns value, or fallback when value is blank
func OrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
