// Package wizard implements the guided order builder: menu, cart review,
// customer details and the submitted receipt.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seasonbot/internal/catalog"
	"seasonbot/internal/geo"
	"seasonbot/internal/models"
	"seasonbot/internal/order"
	"seasonbot/internal/schedule"
)

// View is a wizard step
type View string

const (
	ViewMenu     View = "menu"
	ViewCart     View = "cart"
	ViewCheckout View = "checkout"
	ViewSuccess  View = "success"
)

var (
	// ErrInvalidTransition is returned for moves the state machine does not allow
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrUnknownCategory is returned when selecting a section the menu lacks
	ErrUnknownCategory = errors.New("unknown menu category")
)

// DefaultUpdateDelay is how long local edits settle before the draft is pushed
const DefaultUpdateDelay = 100 * time.Millisecond

// Options configures a Wizard
type Options struct {
	Catalog  *catalog.Catalog
	Rules    order.Rules
	Geocoder geo.Geocoder
	Logger   *slog.Logger

	// Debouncer delays draft pushes; nil uses a real-clock debouncer with
	// DefaultUpdateDelay
	Debouncer *schedule.Debouncer

	// OnUpdate receives a copy of the draft after local edits settle, with
	// the revision it was taken at. See Current.
	OnUpdate func(draft *models.Order, rev uint64)
	// OnSubmit receives the confirmed order
	OnSubmit func(*models.Order)

	InitialView   View
	CategoryID    string
	SubcategoryID string
	Now           func() time.Time
}

// CustomerUpdate carries the checkout form fields; nil fields are left as is
type CustomerUpdate struct {
	Name          *string              `json:"name"`
	Phone         *string              `json:"phone"`
	Email         *string              `json:"email"`
	Address       *string              `json:"address"`
	DeliveryType  *models.DeliveryType `json:"deliveryType" binding:"omitempty,oneof=pickup delivery"`
	PreferredTime *string              `json:"preferredTime"`
	Notes         *string              `json:"notes"`
}

// State is a read-only snapshot for rendering
type State struct {
	View          View                `json:"view"`
	CategoryID    string              `json:"categoryId"`
	SubcategoryID string              `json:"subcategoryId,omitempty"`
	Items         []models.CartItem   `json:"items"`
	Customer      models.CustomerInfo `json:"customerInfo"`
	Totals        order.Totals        `json:"totals"`
	LastOrder     *models.Order       `json:"lastOrder,omitempty"`
}

// Wizard is the order builder state machine. It owns its cart and customer
// copies; the session receives snapshots through OnUpdate.
type Wizard struct {
	catalog  *catalog.Catalog
	rules    order.Rules
	geocoder geo.Geocoder
	logger   *slog.Logger
	debounce *schedule.Debouncer
	onUpdate func(*models.Order, uint64)
	onSubmit func(*models.Order)
	now      func() time.Time

	mu            sync.Mutex
	view          View
	categoryID    string
	subcategoryID string
	items         []models.CartItem
	customer      models.CustomerInfo
	orderID       string
	createdAt     time.Time
	lastOrder     *models.Order
	rev           uint64
	closed        bool
}

// New creates a new Wizard seeded from current, which is copied
func New(opts Options, current *models.Order) *Wizard {
	w := &Wizard{
		catalog:       opts.Catalog,
		rules:         opts.Rules,
		geocoder:      opts.Geocoder,
		logger:        opts.Logger,
		debounce:      opts.Debouncer,
		onUpdate:      opts.OnUpdate,
		onSubmit:      opts.OnSubmit,
		now:           opts.Now,
		view:          opts.InitialView,
		categoryID:    opts.CategoryID,
		subcategoryID: opts.SubcategoryID,
		customer:      models.CustomerInfo{DeliveryType: models.DeliveryTypePickup},
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.debounce == nil {
		w.debounce = schedule.NewDebouncer(nil, DefaultUpdateDelay)
	}
	if w.view == "" || w.view == ViewSuccess {
		w.view = ViewMenu
	}
	if w.categoryID == "" && w.catalog != nil && len(w.catalog.Categories()) > 0 {
		w.categoryID = w.catalog.Categories()[0].ID
	}
	w.load(current)
	return w
}

func (w *Wizard) load(current *models.Order) {
	if current == nil {
		w.items = nil
		w.customer = models.CustomerInfo{DeliveryType: models.DeliveryTypePickup}
		w.orderID = ""
		w.createdAt = time.Time{}
		return
	}
	c := current.Clone()
	w.items = c.Items
	w.customer = c.CustomerInfo
	if w.customer.DeliveryType == "" {
		w.customer.DeliveryType = models.DeliveryTypePickup
	}
	w.orderID = c.ID
	w.createdAt = c.CreatedAt
}

// View returns the current step
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Navigate moves between menu, cart and checkout. Checkout needs a non-empty
// cart and success is only reachable through Submit.
func (w *Wizard) Navigate(to View) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.view == ViewSuccess || w.closed {
		return ErrInvalidTransition
	}
	switch to {
	case ViewMenu, ViewCart:
	case ViewCheckout:
		if len(w.items) == 0 {
			return order.ErrEmptyCart
		}
	default:
		return ErrInvalidTransition
	}
	w.view = to
	return nil
}

// SelectCategory switches the menu section shown
func (w *Wizard) SelectCategory(categoryID, subcategoryID string) error {
	if _, ok := w.catalog.Category(categoryID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.categoryID = categoryID
	w.subcategoryID = subcategoryID
	return nil
}

// AddItem puts one unit of the item with code into the cart
func (w *Wizard) AddItem(code string) (order.Toast, error) {
	item, ok := w.catalog.Lookup(code)
	if !ok {
		return order.Toast{}, order.ErrUnknownItem
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return order.Toast{}, err
	}
	w.items = order.AddItem(w.items, item, 1, "")
	w.changedLocked()
	return order.Toast{Message: "Added " + item.Name + " to cart", Kind: order.ToastSuccess}, nil
}

// ChangeQuantity adjusts a line; the quantity never drops below one
func (w *Wizard) ChangeQuantity(code string, delta int) error {
	return w.editItems(func(items []models.CartItem) ([]models.CartItem, error) {
		return order.ChangeQuantity(items, code, delta)
	})
}

// SetNote sets a line's special instructions
func (w *Wizard) SetNote(code, note string) error {
	return w.editItems(func(items []models.CartItem) ([]models.CartItem, error) {
		return order.SetNote(items, code, note)
	})
}

// RemoveItem deletes a line
func (w *Wizard) RemoveItem(code string) (order.Toast, error) {
	err := w.editItems(func(items []models.CartItem) ([]models.CartItem, error) {
		return order.RemoveItem(items, code)
	})
	if err != nil {
		return order.Toast{}, err
	}
	return order.Toast{Message: "Item removed from cart", Kind: order.ToastInfo}, nil
}

func (w *Wizard) editItems(fn func([]models.CartItem) ([]models.CartItem, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	items, err := fn(w.items)
	if err != nil {
		return err
	}
	w.items = items
	w.changedLocked()
	return nil
}

// UpdateCustomer applies checkout form changes
func (w *Wizard) UpdateCustomer(u CustomerUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}

	c := &w.customer
	setString(&c.Name, u.Name)
	setString(&c.Phone, u.Phone)
	setString(&c.Email, u.Email)
	setString(&c.Address, u.Address)
	setString(&c.PreferredTime, u.PreferredTime)
	setString(&c.Notes, u.Notes)
	if u.DeliveryType != nil {
		c.DeliveryType = *u.DeliveryType
	}
	w.changedLocked()
	return nil
}

// SelectLocation records a pinned map location. The distance from the
// kitchen decides whether the location is verified; the reverse-geocoded
// address is best effort.
func (w *Wizard) SelectLocation(ctx context.Context, lat, lng float64) error {
	kitchen := w.catalog.Restaurant().Location
	dist := geo.Distance(kitchen.Lat, kitchen.Lng, lat, lng)
	verified := dist <= w.rules.MaxDeliveryKm

	var suggestion string
	if w.geocoder != nil {
		addr, err := w.geocoder.ReverseGeocode(ctx, lat, lng)
		if err != nil {
			w.logger.Warn("reverse geocoding failed", "error", err)
		} else {
			suggestion = addr
		}
	}

	return w.ApplyLocation(lat, lng, dist, verified, suggestion)
}

// ApplyLocation stores a location result. The suggestion replaces the
// address only while the customer has not typed their own.
func (w *Wizard) ApplyLocation(lat, lng, dist float64, verified bool, suggestion string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}

	prev := w.customer
	changed := !floatEq(prev.Lat, lat) || !floatEq(prev.Lng, lng) || !floatEq(prev.Distance, dist) ||
		prev.LocationVerified != verified || (suggestion != "" && suggestion != prev.AddressSuggestion)
	if !changed {
		return nil
	}

	c := &w.customer
	c.Lat, c.Lng, c.Distance = &lat, &lng, &dist
	c.LocationVerified = verified
	if suggestion != "" {
		if prev.Address == "" || prev.Address == prev.AddressSuggestion {
			c.Address = suggestion
		}
		c.AddressSuggestion = suggestion
	}
	w.changedLocked()
	return nil
}

// UseSuggestion copies the geocoded suggestion into the address
func (w *Wizard) UseSuggestion() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if w.customer.AddressSuggestion == "" || w.customer.Address == w.customer.AddressSuggestion {
		return nil
	}
	w.customer.Address = w.customer.AddressSuggestion
	w.changedLocked()
	return nil
}

// Totals returns the derived amounts and delivery checks
func (w *Wizard) Totals() order.Totals {
	w.mu.Lock()
	defer w.mu.Unlock()
	return order.ComputeTotals(w.items, w.customer, w.rules)
}

// Validate returns every failed submission rule
func (w *Wizard) Validate() []*order.ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return order.Validate(w.items, w.customer, w.rules)
}

// Submit confirms the order from the checkout step. The first failing rule
// is returned as a *order.ValidationError and nothing changes.
func (w *Wizard) Submit() (*models.Order, error) {
	w.mu.Lock()
	if w.view != ViewCheckout || w.closed {
		w.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if err := order.FirstError(w.items, w.customer, w.rules); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	final := w.draftLocked()
	if final.ID == "" {
		final.ID = order.NewID()
	}
	final.Status = models.OrderStatusConfirmed

	w.debounce.Cancel()
	w.view = ViewSuccess
	w.lastOrder = final.Clone()
	w.mu.Unlock()

	if w.onSubmit != nil {
		w.onSubmit(final.Clone())
	}
	return final, nil
}

// Sync replaces the wizard's cart and customer with a copy of the session's
// draft. It does not trigger a push back.
func (w *Wizard) Sync(current *models.Order) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.view == ViewSuccess || w.closed {
		return
	}
	w.rev++
	w.load(current)
}

// Draft returns a copy of the wizard's working order
func (w *Wizard) Draft() *models.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftLocked()
}

// State returns a snapshot for rendering
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		View:          w.view,
		CategoryID:    w.categoryID,
		SubcategoryID: w.subcategoryID,
		Items:         append([]models.CartItem{}, w.items...),
		Customer:      w.customer.Clone(),
		Totals:        order.ComputeTotals(w.items, w.customer, w.rules),
		LastOrder:     w.lastOrder.Clone(),
	}
}

// Close cancels any pending draft push
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.debounce.Cancel()
}

func (w *Wizard) editable() error {
	if w.view == ViewSuccess || w.closed {
		return ErrInvalidTransition
	}
	return nil
}

func (w *Wizard) changedLocked() {
	if w.onUpdate == nil {
		return
	}
	w.debounce.Schedule(w.push)
}

func (w *Wizard) push() {
	w.mu.Lock()
	if w.view == ViewSuccess || w.closed {
		w.mu.Unlock()
		return
	}
	draft := w.draftLocked()
	rev := w.rev
	w.mu.Unlock()

	w.onUpdate(draft, rev)
}

// Current reports whether a draft pushed at rev still reflects the wizard:
// it is open and no Sync has replaced its state since.
func (w *Wizard) Current(rev uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.rev == rev
}

func (w *Wizard) draftLocked() *models.Order {
	createdAt := w.createdAt
	if createdAt.IsZero() {
		createdAt = w.now()
		w.createdAt = createdAt
	}
	o := &models.Order{
		ID:            w.orderID,
		Items:         append([]models.CartItem{}, w.items...),
		CustomerInfo:  w.customer.Clone(),
		Status:        models.OrderStatusDraft,
		CreatedAt:     createdAt,
		PaymentStatus: models.PaymentStatusPending,
	}
	order.Recalculate(o, w.rules)
	return o
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func floatEq(p *float64, v float64) bool {
	return p != nil && *p == v
}

