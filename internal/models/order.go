package models

import (
	"time"
)

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
)

// PaymentStatus tracks payment for an order. Payment itself is not processed.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// DeliveryType is pickup or home delivery
type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

// CartItem is a line in the cart. Name and Price are snapshots taken when
// the item was first added.
type CartItem struct {
	ID                  string `json:"id"`
	Code                string `json:"code"`
	Name                string `json:"name"`
	Quantity            int    `json:"quantity"`
	Price               int    `json:"price"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
	Total               int    `json:"total"`
}

// CustomerInfo holds contact and delivery details for an order
type CustomerInfo struct {
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	Email             string       `json:"email,omitempty"`
	Address           string       `json:"address,omitempty"`
	DeliveryType      DeliveryType `json:"deliveryType"`
	PreferredTime     string       `json:"preferredTime,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	LocationVerified  bool         `json:"locationVerified"`
	Distance          *float64     `json:"distance,omitempty"`
	Lat               *float64     `json:"lat,omitempty"`
	Lng               *float64     `json:"lng,omitempty"`
	AddressSuggestion string       `json:"addressSuggestion,omitempty"`
}

// IsDelivery reports whether the customer asked for home delivery
func (c CustomerInfo) IsDelivery() bool {
	return c.DeliveryType == DeliveryTypeDelivery
}

// Order represents a customer order, draft or confirmed
type Order struct {
	ID                 string        `json:"id"`
	Items              []CartItem    `json:"items"`
	CustomerInfo       CustomerInfo  `json:"customerInfo"`
	Status             OrderStatus   `json:"status"`
	Subtotal           int           `json:"subtotal"`
	DeliveryFee        int           `json:"deliveryFee"`
	Total              int           `json:"total"`
	CreatedAt          time.Time     `json:"createdAt"`
	EstimatedReadyTime *time.Time    `json:"estimatedReadyTime,omitempty"`
	PaymentMethod      string        `json:"paymentMethod,omitempty"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
}

// Clone returns a deep copy so that callers never share slices or pointers
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]CartItem(nil), o.Items...)
	c.CustomerInfo = o.CustomerInfo.Clone()
	if o.EstimatedReadyTime != nil {
		t := *o.EstimatedReadyTime
		c.EstimatedReadyTime = &t
	}
	return &c
}

// Clone returns a copy of the customer info with its own pointer fields
func (c CustomerInfo) Clone() CustomerInfo {
	out := c
	out.Distance = copyFloat(c.Distance)
	out.Lat = copyFloat(c.Lat)
	out.Lng = copyFloat(c.Lng)
	return out
}

// TotalItems returns the number of units across all lines
func (o *Order) TotalItems() int {
	if o == nil {
		return 0
	}
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
