package enrich

import (
	"sort"

	"cart-enricher/internal/models"

	"github.com/samber/lo"
)

// Aggregate sums quantities per category. Unresolved lines are skipped.
// The result does not depend on line order.
func Aggregate(lines []models.CategorizedLine) models.CategoryTotals {
	totals := models.CategoryTotals{}
	for _, line := range lo.Filter(lines, func(l models.CategorizedLine, _ int) bool { return l.Resolved }) {
		totals[line.Category] += line.Quantity
	}
	return totals
}

// PickFavorite returns the category with the largest total. Ties go to the
// lexicographically smallest label. Empty totals yield false.
func PickFavorite(totals models.CategoryTotals) (string, bool) {
	if len(totals) == 0 {
		return "", false
	}

	labels := lo.Keys(totals)
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if totals[label] > totals[best] {
			best = label
		}
	}
	return best, true
}
