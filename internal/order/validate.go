package order

import (
	"fmt"
	"regexp"
	"strings"

	"seasonbot/internal/models"
)

// bdMobile matches a Bangladeshi mobile number with an optional country prefix
var bdMobile = regexp.MustCompile(`^(?:\+88|88)?(01[3-9]\d{8})$`)

// ValidationError is a single failed submission rule
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizePhone strips the spaces and dashes users type into phone numbers
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(phone)
}

// ValidPhone reports whether phone is a Bangladeshi mobile number
func ValidPhone(phone string) bool {
	return bdMobile.MatchString(NormalizePhone(phone))
}

// Validate returns every failed submission rule in the order they are
// reported to the customer. The phone is checked first regardless of the
// delivery type.
func Validate(items []models.CartItem, customer models.CustomerInfo, rules Rules) []*ValidationError {
	var errs []*ValidationError

	if !ValidPhone(customer.Phone) {
		errs = append(errs, &ValidationError{Field: "phone", Message: "Please provide a valid BD mobile number"})
	}
	if len(items) == 0 {
		errs = append(errs, &ValidationError{Field: "items", Message: "Your cart is empty"})
	}

	if customer.IsDelivery() {
		totals := ComputeTotals(items, customer, rules)
		if customer.Address == "" {
			errs = append(errs, &ValidationError{Field: "address", Message: "Delivery address required"})
		}
		if !customer.LocationVerified {
			errs = append(errs, &ValidationError{Field: "location", Message: "Please pin location on map"})
		}
		if !totals.MinOrderMet {
			errs = append(errs, &ValidationError{
				Field:   "subtotal",
				Message: fmt.Sprintf("Minimum ৳%d for delivery", rules.MinOrderAmount),
			})
		}
		if !totals.DistanceValid {
			errs = append(errs, &ValidationError{
				Field:   "distance",
				Message: fmt.Sprintf("Outside delivery zone (%gkm)", rules.MaxDeliveryKm),
			})
		}
	}

	return errs
}

// FirstError returns the first failed rule, or nil when the order may be
// submitted
func FirstError(items []models.CartItem, customer models.CustomerInfo, rules Rules) error {
	if errs := Validate(items, customer, rules); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
