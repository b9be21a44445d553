package assistant

import (
	"encoding/json"
	"testing"
	"time"

	"seasonbot/internal/catalog"
	"seasonbot/internal/models"
	"seasonbot/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartContext(t *testing.T) {
	assert.Equal(t, "Empty Cart", cartContext(nil, order.DefaultRules()))

	o := &models.Order{
		Items: []models.CartItem{
			{Code: "101", Name: "CHICKEN CORN SOUP", Price: 745, Quantity: 2},
			{Code: "108", Name: "THAI SPRING ROLL", Price: 570, Quantity: 1, SpecialInstructions: "extra sauce"},
		},
		CustomerInfo: models.CustomerInfo{Name: "Nadia"},
	}

	var snap cartSnapshot
	require.NoError(t, json.Unmarshal([]byte(cartContext(o, order.DefaultRules())), &snap))
	assert.Equal(t, 2, snap.ItemCount)
	assert.Equal(t, 2060, snap.Subtotal)
	assert.Equal(t, []string{
		"2x CHICKEN CORN SOUP [Code: 101]",
		"1x THAI SPRING ROLL [Code: 108] (Note: extra sauce)",
	}, snap.Items)
	assert.Equal(t, "Nadia", snap.CustomerInfo.Name)
	assert.Equal(t, notProvided, snap.CustomerInfo.Phone)
	assert.Equal(t, "pickup", snap.CustomerInfo.DeliveryType)
	assert.Equal(t, notProvided, snap.CustomerInfo.Address)
}

func TestSystemInstruction(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	now := time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC)

	o := &models.Order{
		Items: []models.CartItem{{Code: "221", Name: "BEEF SIZZLING", Price: 610, Quantity: 1}},
		CustomerInfo: models.CustomerInfo{
			Name:         "Nadia",
			Phone:        "01712345678",
			DeliveryType: models.DeliveryTypeDelivery,
		},
	}
	prompt, err := SystemInstruction(c, order.DefaultRules(), o, now)
	require.NoError(t, err)

	assert.Contains(t, prompt, "**"+c.Restaurant().Name+"**")
	assert.Contains(t, prompt, "Minimum ৳1000 required")
	assert.Contains(t, prompt, "within 5km")
	assert.Contains(t, prompt, "1. Items in Cart? ✅")
	assert.Contains(t, prompt, "2. Customer Name/Phone? ✅")
	assert.Contains(t, prompt, "3. Delivery/Pickup? ✅ (delivery)")
	assert.Contains(t, prompt, "4. Address/Location? ❌")
	assert.Contains(t, prompt, "Your current total is ৳610")
	assert.Contains(t, prompt, c.MenuJSON())

	prompt, err = SystemInstruction(c, order.DefaultRules(), nil, now)
	require.NoError(t, err)
	assert.Contains(t, prompt, "1. Items in Cart? ❌")
	assert.Contains(t, prompt, "4. Address/Location? N/A")
}

func TestOrderTool(t *testing.T) {
	tool := OrderTool()
	assert.Equal(t, ToolName, tool.Name)

	_, err := json.Marshal(tool.Parameters)
	require.NoError(t, err)
	props := tool.Parameters["properties"].(map[string]any)
	action := props["action"].(map[string]any)
	assert.Equal(t, []string{"add", "remove", "checkout", "update_info", "confirm", "browse_menu"}, action["enum"])
}
