package models

import (
	"testing"
	"time"
)

func TestHoursForMonth(t *testing.T) {
	h := Hours{
		SeasonOctFeb: HoursDetails{Lunch: "12:00-15:00", Dinner: "18:00-22:30"},
		SeasonMarSep: HoursDetails{Lunch: "12:00-15:30", Dinner: "18:30-22:30"},
	}

	winter := []time.Month{time.October, time.November, time.December, time.January, time.February}
	for _, m := range winter {
		if got := h.ForMonth(m); got != h.SeasonOctFeb {
			t.Errorf("ForMonth(%s) = %v, want winter schedule", m, got)
		}
	}

	summer := []time.Month{time.March, time.April, time.May, time.June, time.July, time.August, time.September}
	for _, m := range summer {
		if got := h.ForMonth(m); got != h.SeasonMarSep {
			t.Errorf("ForMonth(%s) = %v, want summer schedule", m, got)
		}
	}
}

func TestValidateCategory(t *testing.T) {
	item := MenuItem{ID: "101", Code: "101", Name: "THAI SPRING ROLL", Price: 570}

	valid := Category{ID: "chinese", Name: "Chinese", Subcategories: []Subcategory{{ID: "appetizers", Name: "Appetizer", Items: []MenuItem{item}}}}
	if err := ValidateCategory(&valid); err != nil {
		t.Errorf("ValidateCategory() unexpected error: %v", err)
	}

	mixed := valid
	mixed.Items = []MenuItem{item}
	if err := ValidateCategory(&mixed); err == nil {
		t.Error("ValidateCategory() accepted a category with both items and subcategories")
	}

	free := Category{Name: "Free", Items: []MenuItem{{Code: "1", Name: "Water", Price: 0}}}
	if err := ValidateCategory(&free); err == nil {
		t.Error("ValidateCategory() accepted an item without a price")
	}
}

func TestMenuItemHasTag(t *testing.T) {
	item := MenuItem{Tags: []string{TagVegetarian, TagHalal}}
	if !item.HasTag(TagHalal) {
		t.Error("HasTag(H) = false, want true")
	}
	if item.HasTag(TagNuts) {
		t.Error("HasTag(N) = true, want false")
	}
	if !item.IsVegetarian() {
		t.Error("IsVegetarian() = false, want true")
	}
}
