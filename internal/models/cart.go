package models

// CartLine is one product entry of a cart
type CartLine struct {
	ProductID int `json:"id"`
	Quantity  int `json:"quantity"`
}

// Cart is a user's cart as returned by the catalog
type Cart struct {
	ID     int        `json:"id"`
	UserID int        `json:"userId"`
	Lines  []CartLine `json:"products"`
}

// CategorizedLine is a cart line after its product category lookup.
// Category is empty whenever Resolved is false.
type CategorizedLine struct {
	CartLine
	Category string `json:"category,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Resolve returns the line tagged with category
func Resolve(line CartLine, category string) CategorizedLine {
	return CategorizedLine{CartLine: line, Category: category, Resolved: true}
}

// Unresolved returns the line with no category
func Unresolved(line CartLine) CategorizedLine {
	return CategorizedLine{CartLine: line}
}

// CategoryTotals maps a category to the summed quantity of its resolved lines
type CategoryTotals map[string]int
