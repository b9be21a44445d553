// Package intent answers simple requests locally so they never reach the
// hosted model.
package intent

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"seasonbot/internal/catalog"
	"seasonbot/internal/models"
)

// Response is a canned reply with an optional structured action
type Response struct {
	Text   string              `json:"text"`
	Action *models.OrderAction `json:"action,omitempty"`
}

// NotUnderstood is the offline reply when nothing matches
const NotUnderstood = "I'm not sure I understood. Would you like to see the menu?"

// shortInput is the length below which a bare section name counts as a browse request
const shortInput = 25

var (
	checkoutKeywords = []string{"checkout", "finish", "bill", "payment", "cart", "bag"}
	contactKeywords  = []string{"location", "address", "where", "phone", "contact", "call", "number", "hotline"}
	hoursKeywords    = []string{"hour", "time", "open", "close", "schedule", "koytay", "khola", "bondho"}
	browseVerbs      = []string{"show", "open", "list", "menu", "browse", "go to", "see"}
	menuVerbs        = []string{"show", "open", "see", "view", "list", "browse", "start"}
)

// Router classifies free text against keyword groups and the menu tree
type Router struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewRouter creates a new Router
func NewRouter(c *catalog.Catalog) *Router {
	return &Router{catalog: c, now: time.Now}
}

// WithClock replaces the clock used to pick the seasonal schedule
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// Classify returns a local response or nil when the text should go to the
// remote assistant. Groups are tried in a fixed order and the first hit wins.
func (r *Router) Classify(text string) *Response {
	raw := strings.ToLower(strings.TrimSpace(text))
	if raw == "" {
		return nil
	}
	has := func(keywords ...string) bool {
		for _, k := range keywords {
			if strings.Contains(raw, k) {
				return true
			}
		}
		return false
	}

	if has(checkoutKeywords...) {
		return &Response{
			Text:   "Opening your shopping bag summary. 🛒",
			Action: &models.OrderAction{Action: models.ActionCheckout},
		}
	}

	if has(contactKeywords...) {
		rest := r.catalog.Restaurant()
		return &Response{Text: fmt.Sprintf("📍 **%s**\n%s\n\n📞 **Phone:** %s",
			rest.Name, rest.Contact.Address, rest.Contact.Phone)}
	}

	if has(hoursKeywords...) {
		h := r.catalog.Restaurant().Hours.ForMonth(r.now().Month())
		return &Response{Text: fmt.Sprintf("🕰️ **Opening Hours**\n\n**Lunch:** %s\n**Dinner:** %s\n\nWe are open every day!",
			h.Lunch, h.Dinner)}
	}

	browsing := has(browseVerbs...) || utf8.RuneCountInString(raw) < shortInput

	if cat, sub, ok := r.matchSubcategory(raw); ok && browsing {
		return &Response{
			Text: fmt.Sprintf("Opening the **%s** section for you. 📖", sub.Name),
			Action: &models.OrderAction{
				Action:        models.ActionBrowseMenu,
				CategoryID:    cat.ID,
				SubcategoryID: sub.ID,
			},
		}
	}

	if cat, ok := r.matchCategory(raw); ok && browsing {
		return &Response{
			Text:   fmt.Sprintf("Opening the **%s** collection. 📖", cat.Name),
			Action: &models.OrderAction{Action: models.ActionBrowseMenu, CategoryID: cat.ID},
		}
	}

	if raw == "menu" || raw == "full menu" || (has("menu") && has(menuVerbs...)) {
		return &Response{
			Text:   "Opening the full menu for you! 📖",
			Action: &models.OrderAction{Action: models.ActionBrowseMenu},
		}
	}

	return nil
}

// Fallback answers the latest user message without a hosted model
func (r *Router) Fallback(last string) *Response {
	if resp := r.Classify(last); resp != nil {
		return resp
	}
	return &Response{
		Text:   NotUnderstood,
		Action: &models.OrderAction{Action: models.ActionBrowseMenu},
	}
}

func (r *Router) matchSubcategory(raw string) (models.Category, models.Subcategory, bool) {
	for _, cat := range r.catalog.Categories() {
		for _, sub := range cat.Subcategories {
			if strings.Contains(raw, strings.ToLower(sub.Name)) || strings.Contains(raw, sub.ID) {
				return cat, sub, true
			}
		}
	}
	return models.Category{}, models.Subcategory{}, false
}

func (r *Router) matchCategory(raw string) (models.Category, bool) {
	for _, cat := range r.catalog.Categories() {
		if strings.Contains(raw, strings.ToLower(cat.Name)) {
			return cat, true
		}
	}
	return models.Category{}, false
}
