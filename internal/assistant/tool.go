package assistant

import (
	"seasonbot/internal/models"
	"seasonbot/internal/models/providers"
)

// ToolName is the single function the model may call
const ToolName = "manage_order"

// OrderTool describes manage_order in JSON schema form
func OrderTool() providers.Tool {
	actions := make([]string, 0, len(models.ActionKinds))
	for _, a := range models.ActionKinds {
		actions = append(actions, string(a))
	}

	return providers.Tool{
		Name:        ToolName,
		Description: "Manage the user's order: add/remove items with notes, update customer details, or confirm the order.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"description": `The action to perform: "add", "remove", "checkout", "update_info", "confirm", or "browse_menu".`,
					"enum":        actions,
				},
				"category_id": map[string]any{
					"type":        "string",
					"description": `Category ID to open when action is "browse_menu" (e.g. "chinese", "beverages").`,
				},
				"subcategory_id": map[string]any{
					"type":        "string",
					"description": `Subcategory ID to open (e.g. "soups", "grilled", "appetizers") for a specific section within a category.`,
				},
				"items": map[string]any{
					"type":        "array",
					"description": `Items to add or remove. Required for "add" and "remove".`,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"item_code": map[string]any{
								"type":        "string",
								"description": `The code of the menu item (e.g. "101", "221").`,
							},
							"quantity": map[string]any{
								"type":        "integer",
								"description": "Quantity of the item.",
								"minimum":     1,
							},
							"notes": map[string]any{
								"type":        "string",
								"description": `Special instructions, spice levels or variations (e.g. "Less spicy").`,
							},
						},
						"required": []string{"item_code", "quantity"},
					},
				},
				"customer_details": map[string]any{
					"type":        "object",
					"description": `Customer information. Required for "update_info".`,
					"properties": map[string]any{
						"name":           map[string]any{"type": "string", "description": "Customer full name"},
						"phone":          map[string]any{"type": "string", "description": "Customer phone number"},
						"address":        map[string]any{"type": "string", "description": "Delivery address (required for delivery)"},
						"delivery_type":  map[string]any{"type": "string", "enum": []string{"pickup", "delivery"}, "description": "Type of order"},
						"preferred_time": map[string]any{"type": "string", "description": "Preferred delivery or pickup time"},
					},
				},
			},
			"required": []string{"action"},
		},
	}
}
