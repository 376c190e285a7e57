// Package sales holds the category filter, the KPI aggregation and the chart
// series computed over a loaded dataset.
package sales

import (
	"slices"

	"sales-dashboard/internal/models"
)

// AllCategories selects every transaction.
const AllCategories = "Toutes les catégories"

// Categories returns the distinct non-empty product categories in order of
// first appearance.
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

// Options is the list offered to the user: the sentinel first, then the
// categories.
func Options(products []models.Product) []string {
	return append([]string{AllCategories}, Categories(products)...)
}

// ValidCategory reports whether category is the sentinel or one of the
// product categories.
func ValidCategory(products []models.Product, category string) bool {
	return category == AllCategories || slices.Contains(Categories(products), category)
}

// Filter returns the transactions whose product name belongs to category,
// in their original order. The sentinel returns txs itself. Transactions
// naming an unknown product never match a category.
func Filter(txs []models.Transaction, products []models.Product, category string) []models.Transaction {
	if category == AllCategories {
		return txs
	}

	names := make(map[string]struct{})
	for _, p := range products {
		if p.Category == category {
			names[p.ProductName] = struct{}{}
		}
	}

	filtered := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, ok := names[tx.ProductName]; ok {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
