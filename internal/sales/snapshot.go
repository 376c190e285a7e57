package sales

import "sales-dashboard/internal/models"

const DefaultTopProducts = 10

// Snapshot is one rendering pass over a dataset: the filtered transactions
// and everything derived from them. Renderers only read it.
type Snapshot struct {
	Category     string                 `json:"category"`
	Categories   []string               `json:"categories"`
	Transactions []models.Transaction   `json:"transactions"`
	KPIs         KPISet                 `json:"kpis"`
	Monthly      []models.MonthlySales  `json:"monthly_sales"`
	ByCategory   []models.CategorySales `json:"sales_by_category"`
	TopProducts  []models.ProductSales  `json:"top_products"`
}

// NewSnapshot runs filter then aggregation for category. An empty category
// means all categories.
func NewSnapshot(ds *models.Dataset, category string, topN int) *Snapshot {
	if category == "" {
		category = AllCategories
	}
	if ds == nil {
		ds = &models.Dataset{}
	}

	filtered := Filter(ds.Transactions, ds.Products, category)
	return &Snapshot{
		Category:     category,
		Categories:   Options(ds.Products),
		Transactions: filtered,
		KPIs:         ComputeKPIs(filtered),
		Monthly:      MonthlySales(filtered),
		ByCategory:   SalesByCategory(filtered, ds.Products),
		TopProducts:  TopProducts(filtered, topN),
	}
}
