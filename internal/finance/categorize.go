package finance

import (
	"strings"

	"github.com/dukerupert/choreledger/internal/model"
)

// Categorize guesses a budget category from an expense description.
// Matching is case-insensitive: the whole description first, then known
// phrases it contains. Unmatched descriptions fall back to
// model.DefaultCategory.
func Categorize(description string) string {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return model.DefaultCategory
	}
	if cat, ok := exactCategories[desc]; ok {
		return cat
	}
	for _, entry := range phraseCategories {
		if strings.Contains(desc, entry.phrase) {
			return entry.category
		}
	}
	return model.DefaultCategory
}

var exactCategories = map[string]string{
	"rent":      "Housing",
	"mortgage":  "Housing",
	"gas":       "Transport",
	"fuel":      "Transport",
	"uber":      "Transport",
	"lyft":      "Transport",
	"taxi":      "Transport",
	"water":     "Utilities",
	"power":     "Utilities",
	"internet":  "Utilities",
	"wifi":      "Utilities",
	"netflix":   "Entertainment",
	"spotify":   "Entertainment",
	"movies":    "Entertainment",
	"groceries": "Groceries",
	"takeout":   "Food",
	"pizza":     "Food",
	"sushi":     "Food",
}

// phraseCategories is ordered longer and more specific phrases first.
var phraseCategories = []struct {
	phrase   string
	category string
}{
	// Utilities
	{"electric", "Utilities"},
	{"water bill", "Utilities"},
	{"gas bill", "Utilities"},
	{"internet", "Utilities"},
	{"phone bill", "Utilities"},
	{"trash service", "Utilities"},

	// Housing
	{"rent", "Housing"},
	{"mortgage", "Housing"},
	{"repair", "Housing"},
	{"plumber", "Housing"},

	// Groceries
	{"grocer", "Groceries"},
	{"supermarket", "Groceries"},
	{"costco", "Groceries"},
	{"farmers market", "Groceries"},

	// Household supplies
	{"toilet paper", "Household"},
	{"paper towel", "Household"},
	{"detergent", "Household"},
	{"cleaning", "Household"},
	{"dish soap", "Household"},
	{"trash bag", "Household"},

	// Food
	{"restaurant", "Food"},
	{"breakfast", "Food"},
	{"brunch", "Food"},
	{"lunch", "Food"},
	{"dinner", "Food"},
	{"coffee", "Food"},
	{"takeout", "Food"},
	{"delivery", "Food"},
	{"pizza", "Food"},

	// Transport
	{"parking", "Transport"},
	{"train", "Transport"},
	{"fuel", "Transport"},
	{"taxi", "Transport"},

	// Entertainment
	{"concert", "Entertainment"},
	{"movie", "Entertainment"},
	{"cinema", "Entertainment"},
	{"tickets", "Entertainment"},
	{"subscription", "Entertainment"},

	// Health
	{"pharmacy", "Health"},
	{"doctor", "Health"},
	{"dentist", "Health"},
	{"vet", "Health"},
}
