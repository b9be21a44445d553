// Package order holds the cart operations, derived totals, submission rules
// and the reducer that applies structured actions to a draft order.
package order

import (
	"errors"

	"seasonbot/internal/models"
)

var (
	// ErrUnknownItem is returned when a code does not resolve to a menu item
	ErrUnknownItem = errors.New("unknown menu item")
	// ErrItemNotInCart is returned when a cart line is addressed by a code it does not hold
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrEmptyCart is returned when an operation needs at least one cart line
	ErrEmptyCart = errors.New("cart is empty")
)

// AddItem merges qty units of item into the cart. An existing line for the
// same code keeps its name, price and instructions; a non-empty note
// replaces the instructions.
func AddItem(items []models.CartItem, item models.MenuItem, qty int, note string) []models.CartItem {
	if qty < 1 {
		qty = 1
	}
	out := cloneItems(items)
	for i := range out {
		if out[i].Code == item.Code {
			out[i].Quantity += qty
			if note != "" {
				out[i].SpecialInstructions = note
			}
			out[i].Total = out[i].Quantity * out[i].Price
			return out
		}
	}
	return append(out, models.CartItem{
		ID:                  item.ID,
		Code:                item.Code,
		Name:                item.Name,
		Price:               item.Price,
		Quantity:            qty,
		SpecialInstructions: note,
		Total:               qty * item.Price,
	})
}

// ChangeQuantity adjusts a line by delta. The quantity never drops below one;
// use RemoveItem to delete a line.
func ChangeQuantity(items []models.CartItem, code string, delta int) ([]models.CartItem, error) {
	i := indexOf(items, code)
	if i < 0 {
		return items, ErrItemNotInCart
	}
	out := cloneItems(items)
	out[i].Quantity = max(1, out[i].Quantity+delta)
	out[i].Total = out[i].Quantity * out[i].Price
	return out, nil
}

// DecreaseItem removes qty units from a line, deleting it when none remain
func DecreaseItem(items []models.CartItem, code string, qty int) ([]models.CartItem, error) {
	i := indexOf(items, code)
	if i < 0 {
		return items, ErrItemNotInCart
	}
	if items[i].Quantity-qty <= 0 {
		return RemoveItem(items, code)
	}
	out := cloneItems(items)
	out[i].Quantity -= qty
	out[i].Total = out[i].Quantity * out[i].Price
	return out, nil
}

// RemoveItem deletes the line for code
func RemoveItem(items []models.CartItem, code string) ([]models.CartItem, error) {
	i := indexOf(items, code)
	if i < 0 {
		return items, ErrItemNotInCart
	}
	out := make([]models.CartItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), nil
}

// SetNote replaces the special instructions of a line
func SetNote(items []models.CartItem, code, note string) ([]models.CartItem, error) {
	i := indexOf(items, code)
	if i < 0 {
		return items, ErrItemNotInCart
	}
	out := cloneItems(items)
	out[i].SpecialInstructions = note
	return out, nil
}

func indexOf(items []models.CartItem, code string) int {
	for i, item := range items {
		if item.Code == code {
			return i
		}
	}
	return -1
}

func cloneItems(items []models.CartItem) []models.CartItem {
	return append([]models.CartItem(nil), items...)
}
