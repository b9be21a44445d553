package order

import (
	"time"

	"seasonbot/internal/models"
)

// Rules are the delivery business rules
type Rules struct {
	MinOrderAmount int     `yaml:"min_order_amount" json:"minOrderAmount"`
	MaxDeliveryKm  float64 `yaml:"max_delivery_km" json:"maxDeliveryKm"`
	DeliveryFee    int     `yaml:"delivery_fee" json:"deliveryFee"`
}

// DefaultRules returns the restaurant's standard delivery rules
func DefaultRules() Rules {
	return Rules{
		MinOrderAmount: 1000,
		MaxDeliveryKm:  5,
		DeliveryFee:    0,
	}
}

// Totals are the values derived from a cart and customer info
type Totals struct {
	Subtotal      int  `json:"subtotal"`
	DeliveryFee   int  `json:"deliveryFee"`
	Total         int  `json:"total"`
	TotalItems    int  `json:"totalItems"`
	MinOrderMet   bool `json:"isMinOrderMet"`
	DistanceValid bool `json:"isDistanceValid"`
}

// ComputeTotals derives totals and delivery checks. Pickup orders always
// meet the minimum and distance rules; a delivery without a measured
// distance counts as within range.
func ComputeTotals(items []models.CartItem, customer models.CustomerInfo, rules Rules) Totals {
	var t Totals
	for _, item := range items {
		t.Subtotal += item.Price * item.Quantity
		t.TotalItems += item.Quantity
	}

	t.MinOrderMet = true
	t.DistanceValid = true
	if customer.IsDelivery() {
		t.DeliveryFee = rules.DeliveryFee
		t.MinOrderMet = t.Subtotal >= rules.MinOrderAmount
		if customer.Distance != nil {
			t.DistanceValid = *customer.Distance <= rules.MaxDeliveryKm
		}
	}
	t.Total = t.Subtotal + t.DeliveryFee
	return t
}

// Recalculate refreshes line totals and the order's derived amounts in place
func Recalculate(o *models.Order, rules Rules) {
	for i := range o.Items {
		o.Items[i].Total = o.Items[i].Quantity * o.Items[i].Price
	}
	t := ComputeTotals(o.Items, o.CustomerInfo, rules)
	o.Subtotal = t.Subtotal
	o.DeliveryFee = t.DeliveryFee
	o.Total = t.Total
}

// NewDraft returns an empty draft order for pickup
func NewDraft(now time.Time) *models.Order {
	return &models.Order{
		Items:         []models.CartItem{},
		CustomerInfo:  models.CustomerInfo{DeliveryType: models.DeliveryTypePickup},
		Status:        models.OrderStatusDraft,
		CreatedAt:     now,
		PaymentStatus: models.PaymentStatusPending,
	}
}
