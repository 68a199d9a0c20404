package model

import "strings"

// Icon names a glyph from the fixed icon set the UI ships. Values outside the
// set are stored as IconHelp.
type Icon string

const IconHelp Icon = "HelpCircle"

var icons = map[Icon]struct{}{
	IconHelp: {},
	// chores
	"Utensils": {}, "Home": {}, "Trash": {}, "ChefHat": {}, "Moon": {}, "Users": {},
	"Droplet": {}, "GlassWater": {}, "Tv": {}, "Wifi": {}, "Zap": {}, "ShoppingBag": {},
	"Dog": {}, "Cat": {}, "Car": {}, "Bike": {}, "Shovel": {}, "Hammer": {},
	"Bed": {}, "Bath": {}, "Shirt": {}, "Armchair": {}, "Flower": {}, "Gamepad": {},
	// budgets
	"ShoppingCart": {}, "Film": {}, "Heart": {}, "GraduationCap": {},
	"Smartphone": {}, "Plane": {},
}

// ParseIcon maps s onto the known icon set, matching case-insensitively.
// The second result reports whether s was recognised.
func ParseIcon(s string) (Icon, bool) {
	s = strings.TrimSpace(s)
	if _, ok := icons[Icon(s)]; ok {
		return Icon(s), true
	}
	for ic := range icons {
		if strings.EqualFold(string(ic), s) {
			return ic, true
		}
	}
	return IconHelp, false
}

// Valid reports whether i is part of the known set.
func (i Icon) Valid() bool {
	_, ok := icons[i]
	return ok
}
