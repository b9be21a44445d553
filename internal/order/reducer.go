package order

import (
	"fmt"
	"strings"
	"time"

	"seasonbot/internal/catalog"
	"seasonbot/internal/models"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Tab is a widget panel
type Tab string

const (
	TabChat Tab = "chat"
	TabMenu Tab = "menu"
	TabCart Tab = "cart"
)

// Navigation asks the widget to switch panels
type Navigation struct {
	Tab           Tab    `json:"tab"`
	CategoryID    string `json:"categoryId,omitempty"`
	SubcategoryID string `json:"subcategoryId,omitempty"`
}

// Toast kinds
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// Toast is a transient notification
type Toast struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Outcome is the result of applying one action. Order is the new draft and
// is nil once a confirmation has cleared it.
type Outcome struct {
	Order      *models.Order
	Changed    bool
	Navigation *Navigation
	Toasts     []Toast
	Messages   []models.ChatMessage
	Confirmed  *models.Order
}

// Reducer applies structured actions to a draft order
type Reducer struct {
	catalog *catalog.Catalog
	rules   Rules
	now     func() time.Time
	newID   func() string
}

// NewReducer creates a new Reducer
func NewReducer(c *catalog.Catalog, rules Rules) *Reducer {
	return &Reducer{
		catalog: c,
		rules:   rules,
		now:     time.Now,
		newID:   NewID,
	}
}

// Rules returns the delivery rules the reducer applies
func (r *Reducer) Rules() Rules {
	return r.rules
}

// Apply interprets action against current, which is never modified.
// Unknown item codes are skipped silently and the call never fails.
func (r *Reducer) Apply(action *models.OrderAction, current *models.Order) Outcome {
	out := Outcome{Order: current.Clone()}
	if action == nil {
		return out
	}

	switch action.Action {
	case models.ActionBrowseMenu:
		out.Navigation = &Navigation{
			Tab:           TabMenu,
			CategoryID:    action.CategoryID,
			SubcategoryID: action.SubcategoryID,
		}

	case models.ActionCheckout:
		out.Navigation = &Navigation{Tab: TabCart}

	case models.ActionAdd:
		r.applyAdd(action, &out)

	case models.ActionRemove:
		r.applyRemove(action, &out)

	case models.ActionUpdateInfo:
		r.applyUpdateInfo(action, &out)

	case models.ActionConfirm:
		r.applyConfirm(&out)
	}

	if out.Changed && out.Order != nil {
		Recalculate(out.Order, r.rules)
	}
	return out
}

func (r *Reducer) draft(out *Outcome) *models.Order {
	if out.Order == nil {
		out.Order = NewDraft(r.now())
	}
	return out.Order
}

func (r *Reducer) applyAdd(action *models.OrderAction, out *Outcome) {
	var items []models.CartItem
	if out.Order != nil {
		items = out.Order.Items
	}

	var added []string
	for _, req := range action.Items {
		item, ok := r.catalog.Lookup(req.ItemCode)
		if !ok {
			continue
		}
		items = AddItem(items, item, req.Quantity, req.Notes)
		added = append(added, item.Name)
	}
	if len(added) == 0 {
		return
	}

	r.draft(out).Items = items
	out.Changed = true
	out.Toasts = append(out.Toasts, Toast{
		Message: "Added: " + strings.Join(added, ", "),
		Kind:    ToastSuccess,
	})
}

func (r *Reducer) applyRemove(action *models.OrderAction, out *Outcome) {
	if out.Order == nil {
		return
	}

	items := out.Order.Items
	var removed []string
	for _, req := range action.Items {
		i := indexOf(items, req.ItemCode)
		if i < 0 {
			continue
		}
		name := items[i].Name
		items, _ = DecreaseItem(items, req.ItemCode, max(1, req.Quantity))
		removed = append(removed, name)
	}
	if len(removed) == 0 {
		return
	}

	out.Order.Items = items
	out.Changed = true
	out.Toasts = append(out.Toasts, Toast{
		Message: "Removed: " + strings.Join(removed, ", "),
		Kind:    ToastInfo,
	})
}

func (r *Reducer) applyUpdateInfo(action *models.OrderAction, out *Outcome) {
	details := action.CustomerDetails
	if details == nil {
		return
	}

	o := r.draft(out)
	info := o.CustomerInfo.Clone()
	if err := copier.CopyWithOption(&info, details, copier.Option{IgnoreEmpty: true}); err != nil {
		return
	}
	if info.DeliveryType == "" {
		info.DeliveryType = models.DeliveryTypePickup
	}
	// A typed address counts as a verified location even without a map pin.
	info.LocationVerified = details.Address != ""

	o.CustomerInfo = info
	out.Changed = true
}

func (r *Reducer) applyConfirm(out *Outcome) {
	if out.Order == nil || len(out.Order.Items) == 0 {
		return
	}

	confirmed := out.Order.Clone()
	Recalculate(confirmed, r.rules)
	if confirmed.ID == "" {
		confirmed.ID = r.newID()
	}
	confirmed.Status = models.OrderStatusConfirmed

	out.Order = nil
	out.Changed = true
	out.Confirmed = confirmed
	out.Navigation = &Navigation{Tab: TabChat}
	out.Messages = append(out.Messages, ConfirmationMessage(confirmed, r.now()))
	out.Toasts = append(out.Toasts, Toast{Message: "Order placed successfully!", Kind: ToastSuccess})
}

// ConfirmationMessage is the chat receipt appended when an order is confirmed
func ConfirmationMessage(o *models.Order, now time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Content:   fmt.Sprintf("Order Success! Your Order ID is **%s**. Total: ৳%d", o.ID, o.Total),
		Sender:    models.SenderAI,
		Timestamp: now,
		Type:      models.MessageTypeOrderUpdate,
		Metadata:  &models.MessageMetadata{OrderID: o.ID},
	}
}
