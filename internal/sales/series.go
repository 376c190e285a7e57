package sales

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const monthLayout = "2006-01"

// MonthlySales sums revenue per calendar month, oldest first. Undated
// transactions are left out.
func MonthlySales(txs []models.Transaction) []models.MonthlySales {
	groups := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		month := tx.Date.Format(monthLayout)
		groups[month] = groups[month].Add(tx.TotalPrice)
	}

	result := make([]models.MonthlySales, 0, len(groups))
	for month, revenue := range groups {
		result = append(result, models.MonthlySales{Month: month, Revenue: revenue})
	}
	slices.SortFunc(result, func(a, b models.MonthlySales) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return result
}

// SalesByCategory sums revenue per product category, joining transactions to
// products on the product code. Transactions without a matching product are
// dropped.
func SalesByCategory(txs []models.Transaction, products []models.Product) []models.CategorySales {
	categoryOf := make(map[string]string, len(products))
	for _, p := range products {
		categoryOf[p.ProductCode] = p.Category
	}

	groups := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		category, ok := categoryOf[tx.ProductCode]
		if !ok || category == "" {
			continue
		}
		groups[category] = groups[category].Add(tx.TotalPrice)
	}

	result := make([]models.CategorySales, 0, len(groups))
	for category, revenue := range groups {
		result = append(result, models.CategorySales{Category: category, Revenue: revenue})
	}
	slices.SortFunc(result, func(a, b models.CategorySales) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

// TopProducts ranks products by revenue, highest first. A limit of zero or
// less returns every product.
func TopProducts(txs []models.Transaction, limit int) []models.ProductSales {
	type totals struct {
		quantity decimal.Decimal
		revenue  decimal.Decimal
	}
	groups := make(map[string]*totals)
	for _, tx := range txs {
		if tx.ProductName == "" {
			continue
		}
		g, ok := groups[tx.ProductName]
		if !ok {
			g = &totals{}
			groups[tx.ProductName] = g
		}
		g.quantity = g.quantity.Add(tx.Quantity)
		g.revenue = g.revenue.Add(tx.TotalPrice)
	}

	result := make([]models.ProductSales, 0, len(groups))
	for name, g := range groups {
		result = append(result, models.ProductSales{
			ProductName:   name,
			TotalQuantity: g.quantity,
			TotalRevenue:  g.revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.ProductSales) int {
		if c := b.TotalRevenue.Cmp(a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})

	if limit > 0 && len(result) > limit {
		return result[:limit]
	}
	return result
}
