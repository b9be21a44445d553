package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"seasonbot/internal/catalog"
	"seasonbot/internal/models"
	"seasonbot/internal/order"
)

const notProvided = "Not provided"

var systemPrompt = template.Must(template.New("system").Funcs(template.FuncMap{
	"check": func(ok bool) string {
		if ok {
			return "✅"
		}
		return "❌"
	},
}).Parse(
	`You are **SeasonBot**, the professional AI Head Waiter at **{{.Restaurant}}** ({{.Address}}).

**YOUR GOAL**: Provide a professional 5-star dining service. Follow a strict hospitality workflow.

**CURRENT STATUS**:
- Time: {{.Day}}, {{.Time}}
- Cart: {{.Cart}}
- **DELIVERY RULES**: Minimum ৳{{.MinOrder}} required. Service only within {{.RadiusKm}}km of the restaurant.
- **PICKUP RULES**: No minimum.

**ORDER COMPLETION CHECKLIST**:
1. Items in Cart? {{check .HasItems}}
2. Customer Name/Phone? {{check .HasContact}}
3. Delivery/Pickup? ✅ ({{.DeliveryType}})
4. Address/Location? {{if .IsDelivery}}{{check .LocationVerified}}{{else}}N/A{{end}}

**MENU KNOWLEDGE (Items & Codes)**:
{{.Menu}}

**WORKFLOW & BEHAVIOR**:

1. **🛒 Adding Items**:
   - When an item is added, say "Added!" and ask: "Sir/Ma'am, would you like anything else?".
   - Suggest a side dish or drink naturally.

2. **📝 Permission to Place Order**:
   - When the user says they are done, ask: "Would you like to place the order now?".
   - If yes, open the checkout view using the 'checkout' action.

3. **🚚 Information & Validation**:
   - Collect Name and Mobile Number if missing.
   - **Mobile Validation**: The phone number must be a valid Bangladeshi mobile number (e.g. 017... or +8801...). If invalid, politely ask for a correct 11-digit BD mobile number.
   - **Price Check**: If delivery is chosen and the total is below ৳{{.MinOrder}}, explain: "Sir/Ma'am, we require a minimum order of ৳{{.MinOrder}} for Home Delivery. Your current total is ৳{{.Subtotal}}. Would you like to add something else, or would you prefer to collect it as a Takeaway?"
   - **Location Check**: For delivery, explain: "Our delivery service is available within a {{.RadiusKm}}km radius. Please pin your exact location on the map."

4. **✅ Final Confirmation**:
   - Once every check passes (minimum order and radius for delivery, name, phone), confirm the order using 'confirm'.

**TONE**:
- Always start with "Assalamu Alaikum" or a polite greeting.
- Language: strictly **English** unless the user speaks Bengali first.
- Professional, high-end restaurant manner. Use "Sir/Ma'am" and "Please/Thank you".
- Always reply with a text confirmation before or after using a tool.
`))

type promptData struct {
	Restaurant       string
	Address          string
	Day              string
	Time             string
	Cart             string
	MinOrder         int
	RadiusKm         string
	Subtotal         int
	HasItems         bool
	HasContact       bool
	DeliveryType     models.DeliveryType
	IsDelivery       bool
	LocationVerified bool
	Menu             string
}

type cartSnapshot struct {
	ItemCount    int              `json:"itemCount"`
	Subtotal     int              `json:"subtotal"`
	Items        []string         `json:"items"`
	CustomerInfo customerSnapshot `json:"customerInfo"`
}

type customerSnapshot struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	DeliveryType string `json:"deliveryType"`
	Address      string `json:"address"`
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// cartContext renders the compact cart snapshot embedded in the prompt
func cartContext(o *models.Order, rules order.Rules) string {
	if o == nil {
		return "Empty Cart"
	}
	totals := order.ComputeTotals(o.Items, o.CustomerInfo, rules)
	snap := cartSnapshot{
		ItemCount: len(o.Items),
		Subtotal:  totals.Subtotal,
		Items:     make([]string, 0, len(o.Items)),
		CustomerInfo: customerSnapshot{
			Name:         orDefault(o.CustomerInfo.Name, notProvided),
			Phone:        orDefault(o.CustomerInfo.Phone, notProvided),
			DeliveryType: orDefault(string(o.CustomerInfo.DeliveryType), string(models.DeliveryTypePickup)),
			Address:      orDefault(o.CustomerInfo.Address, notProvided),
		},
	}
	for _, item := range o.Items {
		line := fmt.Sprintf("%dx %s [Code: %s]", item.Quantity, item.Name, item.Code)
		if item.SpecialInstructions != "" {
			line += fmt.Sprintf(" (Note: %s)", item.SpecialInstructions)
		}
		snap.Items = append(snap.Items, line)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "Empty Cart"
	}
	return string(data)
}

// SystemInstruction builds the system prompt for the current order state
func SystemInstruction(c *catalog.Catalog, rules order.Rules, current *models.Order, now time.Time) (string, error) {
	r := c.Restaurant()
	data := promptData{
		Restaurant:   r.Name,
		Address:      r.Contact.Address,
		Day:          now.Weekday().String(),
		Time:         now.Format("03:04 PM"),
		Cart:         cartContext(current, rules),
		MinOrder:     rules.MinOrderAmount,
		RadiusKm:     fmt.Sprintf("%g", rules.MaxDeliveryKm),
		DeliveryType: models.DeliveryTypePickup,
		Menu:         c.MenuJSON(),
	}
	if current != nil {
		data.Subtotal = order.ComputeTotals(current.Items, current.CustomerInfo, rules).Subtotal
		data.HasItems = len(current.Items) > 0
		data.HasContact = current.CustomerInfo.Name != "" && current.CustomerInfo.Phone != ""
		if current.CustomerInfo.DeliveryType != "" {
			data.DeliveryType = current.CustomerInfo.DeliveryType
		}
		data.IsDelivery = current.CustomerInfo.IsDelivery()
		data.LocationVerified = current.CustomerInfo.LocationVerified
	}

	var sb strings.Builder
	if err := systemPrompt.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return sb.String(), nil
}
