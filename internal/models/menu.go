package models

import (
	"fmt"
	"time"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID          string   `yaml:"id" json:"id"`
	Code        string   `yaml:"code" json:"code"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Price       int      `yaml:"price" json:"price"`
	Currency    string   `yaml:"currency" json:"currency,omitempty"`
	Tags        []string `yaml:"tags" json:"tags"`
	SpiceLevel  *int     `yaml:"spice_level,omitempty" json:"spice_level,omitempty"`
	PrepTime    int      `yaml:"prep_time,omitempty" json:"prep_time,omitempty"`
	Popular     bool     `yaml:"popular,omitempty" json:"popular,omitempty"`
	Recommended bool     `yaml:"recommended,omitempty" json:"recommended,omitempty"`
	BestSeller  bool     `yaml:"best_seller,omitempty" json:"best_seller,omitempty"`
	Serves      int      `yaml:"serves,omitempty" json:"serves,omitempty"`
	Unit        string   `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// Subcategory groups items inside a category
type Subcategory struct {
	ID    string     `yaml:"id" json:"id"`
	Name  string     `yaml:"name" json:"name"`
	Items []MenuItem `yaml:"items" json:"items"`
}

// Category is a top-level menu section. It carries either Items or
// Subcategories, never both.
type Category struct {
	ID               string        `yaml:"id" json:"id"`
	Name             string        `yaml:"name" json:"name"`
	Description      string        `yaml:"description" json:"description"`
	Icon             string        `yaml:"icon" json:"icon,omitempty"`
	MinimumOrder     int           `yaml:"minimum_order,omitempty" json:"minimum_order,omitempty"`
	MinimumOrderUnit string        `yaml:"minimum_order_unit,omitempty" json:"minimum_order_unit,omitempty"`
	Subcategories    []Subcategory `yaml:"subcategories,omitempty" json:"subcategories,omitempty"`
	Items            []MenuItem    `yaml:"items,omitempty" json:"items,omitempty"`
}

// Menu is the full category tree plus its legends
type Menu struct {
	Categories  []Category        `yaml:"categories" json:"categories"`
	TagsLegend  map[string]string `yaml:"tags_legend" json:"tags_legend"`
	SpiceLevels map[string]string `yaml:"spice_levels" json:"spice_levels"`
}

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Contact holds the restaurant's public contact details
type Contact struct {
	Phone   string `yaml:"phone" json:"phone"`
	Email   string `yaml:"email" json:"email"`
	Address string `yaml:"address" json:"address"`
}

// HoursDetails is one seasonal schedule
type HoursDetails struct {
	Lunch  string `yaml:"lunch" json:"lunch"`
	Dinner string `yaml:"dinner" json:"dinner"`
}

// Hours lists opening days and the two seasonal schedules
type Hours struct {
	OpenDays     []string     `yaml:"open_days" json:"open_days"`
	SeasonOctFeb HoursDetails `yaml:"season_oct_feb" json:"season_oct_feb"`
	SeasonMarSep HoursDetails `yaml:"season_mar_sep" json:"season_mar_sep"`
}

// ForMonth returns the schedule in effect for the given month.
// October through February use the winter schedule.
func (h Hours) ForMonth(m time.Month) HoursDetails {
	if m >= time.October || m <= time.February {
		return h.SeasonOctFeb
	}
	return h.SeasonMarSep
}

// Restaurant describes the single restaurant the assistant serves
type Restaurant struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Slogan      string      `yaml:"slogan" json:"slogan"`
	Contact     Contact     `yaml:"contact" json:"contact"`
	Location    Coordinates `yaml:"location" json:"location"`
	Hours       Hours       `yaml:"hours" json:"hours"`
	Services    []string    `yaml:"services" json:"services"`
}

// RestaurantData is the static configuration document
type RestaurantData struct {
	Restaurant Restaurant `yaml:"restaurant" json:"restaurant"`
	Menu       Menu       `yaml:"menu" json:"menu"`
}

// Allergen and dietary tag markers
const (
	TagShrimp     = "S"
	TagNuts       = "N"
	TagHalal      = "H"
	TagVegetarian = "V"
	TagDairy      = "D"
	TagNew        = "new"
)

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Code == "" {
		return fmt.Errorf("menu item %q: code is required", item.Name)
	}
	if item.Price <= 0 {
		return fmt.Errorf("menu item %q: price must be greater than 0", item.Name)
	}
	if item.SpiceLevel != nil && (*item.SpiceLevel < 0 || *item.SpiceLevel > 5) {
		return fmt.Errorf("menu item %q: spice level must be between 0 and 5", item.Name)
	}
	return nil
}

// ValidateCategory checks the items/subcategories exclusivity and every item
func ValidateCategory(c *Category) error {
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if len(c.Items) > 0 && len(c.Subcategories) > 0 {
		return fmt.Errorf("category %q: items and subcategories are mutually exclusive", c.Name)
	}
	for i := range c.Items {
		if err := ValidateMenuItem(&c.Items[i]); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	for _, sub := range c.Subcategories {
		for i := range sub.Items {
			if err := ValidateMenuItem(&sub.Items[i]); err != nil {
				return fmt.Errorf("category %q/%q: %w", c.Name, sub.Name, err)
			}
		}
	}
	return nil
}

// HasTag checks if the item carries a specific tag
func (mi *MenuItem) HasTag(tag string) bool {
	for _, t := range mi.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsVegetarian reports whether the item is marked vegetarian
func (mi *MenuItem) IsVegetarian() bool {
	return mi.HasTag(TagVegetarian)
}
