package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ActionKind names a structured order action
type ActionKind string

const (
	ActionAdd        ActionKind = "add"
	ActionRemove     ActionKind = "remove"
	ActionCheckout   ActionKind = "checkout"
	ActionUpdateInfo ActionKind = "update_info"
	ActionConfirm    ActionKind = "confirm"
	ActionBrowseMenu ActionKind = "browse_menu"
)

// ActionKinds lists every action in the order the tool schema advertises them
var ActionKinds = []ActionKind{
	ActionAdd, ActionRemove, ActionCheckout, ActionUpdateInfo, ActionConfirm, ActionBrowseMenu,
}

// OrderToolItem is one requested line of an add or remove action
type OrderToolItem struct {
	ItemCode string `json:"item_code" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=100"`
	Notes    string `json:"notes,omitempty" validate:"max=500"`
}

// CustomerDetails is the partial customer info an update_info action carries.
// Field names match CustomerInfo so the two can be merged field by field.
type CustomerDetails struct {
	Name          string       `json:"name,omitempty" validate:"max=120"`
	Phone         string       `json:"phone,omitempty" validate:"max=32"`
	Address       string       `json:"address,omitempty" validate:"max=500"`
	DeliveryType  DeliveryType `json:"delivery_type,omitempty" validate:"omitempty,oneof=pickup delivery"`
	PreferredTime string       `json:"preferred_time,omitempty" validate:"max=64"`
}

// OrderAction is a machine-interpretable instruction produced either by the
// local intent router or by the remote model's manage_order call.
type OrderAction struct {
	Action          ActionKind       `json:"action" validate:"required,oneof=add remove checkout update_info confirm browse_menu"`
	CategoryID      string           `json:"category_id,omitempty"`
	SubcategoryID   string           `json:"subcategory_id,omitempty"`
	Items           []OrderToolItem  `json:"items,omitempty" validate:"omitempty,dive"`
	CustomerDetails *CustomerDetails `json:"customer_details,omitempty"`
}

// ErrInvalidAction is returned for tool payloads that fail validation
var ErrInvalidAction = errors.New("invalid order action")

var validate = validator.New()

// Validate checks field constraints plus the per-action requirements
func (a *OrderAction) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	switch a.Action {
	case ActionAdd, ActionRemove:
		if len(a.Items) == 0 {
			return fmt.Errorf("%w: %s requires at least one item", ErrInvalidAction, a.Action)
		}
	case ActionUpdateInfo:
		if a.CustomerDetails == nil {
			return fmt.Errorf("%w: update_info requires customer_details", ErrInvalidAction)
		}
	}
	return nil
}

// ParseOrderAction decodes and validates raw tool-call arguments
func ParseOrderAction(raw []byte) (*OrderAction, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty arguments", ErrInvalidAction)
	}
	var action OrderAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return &action, nil
}
