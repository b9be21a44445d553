// Package catalog holds the static restaurant profile and menu tree, built
// once at startup and shared read-only by every component that resolves
// item codes.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"seasonbot/internal/models"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

// Entry is a menu item together with its position in the tree
type Entry struct {
	Item          models.MenuItem `json:"item"`
	CategoryID    string          `json:"category_id"`
	SubcategoryID string          `json:"subcategory_id,omitempty"`
}

// Catalog is an immutable, indexed view of the restaurant data
type Catalog struct {
	data     models.RestaurantData
	entries  []Entry
	byCode   map[string]int
	menuJSON string
}

// Default returns the catalog built from the embedded menu document
func Default() (*Catalog, error) {
	return Parse(defaultMenu)
}

// Load reads a menu document from disk. An empty path selects the embedded menu.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML menu document and builds the catalog
func Parse(raw []byte) (*Catalog, error) {
	var data models.RestaurantData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}
	return New(data)
}

// New validates the restaurant data and indexes every item by code.
// When several items share a code the first one in menu order wins.
func New(data models.RestaurantData) (*Catalog, error) {
	if len(data.Menu.Categories) == 0 {
		return nil, fmt.Errorf("menu has no categories")
	}

	c := &Catalog{data: data, byCode: make(map[string]int)}
	for ci := range c.data.Menu.Categories {
		cat := &c.data.Menu.Categories[ci]
		if cat.ID == "" {
			cat.ID = slug.Make(cat.Name)
		}
		if err := models.ValidateCategory(cat); err != nil {
			return nil, err
		}
		for _, item := range cat.Items {
			c.index(Entry{Item: item, CategoryID: cat.ID})
		}
		for si := range cat.Subcategories {
			sub := &cat.Subcategories[si]
			if sub.ID == "" {
				sub.ID = slug.Make(sub.Name)
			}
			for _, item := range sub.Items {
				c.index(Entry{Item: item, CategoryID: cat.ID, SubcategoryID: sub.ID})
			}
		}
	}

	menuJSON, err := json.Marshal(c.data.Menu)
	if err != nil {
		return nil, fmt.Errorf("failed to encode menu: %w", err)
	}
	c.menuJSON = string(menuJSON)

	return c, nil
}

func (c *Catalog) index(e Entry) {
	if _, exists := c.byCode[e.Item.Code]; !exists {
		c.byCode[e.Item.Code] = len(c.entries)
	}
	c.entries = append(c.entries, e)
}

// Restaurant returns the restaurant profile
func (c *Catalog) Restaurant() models.Restaurant {
	return c.data.Restaurant
}

// Menu returns the menu tree. Callers must treat it as read-only.
func (c *Catalog) Menu() models.Menu {
	return c.data.Menu
}

// Categories returns the top-level categories in menu order
func (c *Catalog) Categories() []models.Category {
	return c.data.Menu.Categories
}

// Category finds a category by id
func (c *Catalog) Category(id string) (models.Category, bool) {
	for _, cat := range c.data.Menu.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return models.Category{}, false
}

// Lookup resolves an order-reference code to a menu item
func (c *Catalog) Lookup(code string) (models.MenuItem, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.entries[i].Item, true
}

// Entries returns every item in menu order, aliases included
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// MenuJSON is the compact JSON form of the menu used to ground the model
func (c *Catalog) MenuJSON() string {
	return c.menuJSON
}
