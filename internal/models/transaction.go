package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=0"`
	TotalPrice    decimal.Decimal `json:"total_price" validate:"gte=0"`
	ClientCode    string          `json:"client_code"`
	ClientName    string          `json:"client_name"`
}

type Product struct {
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	Category      string          `json:"category"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"gte=0"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"gte=0"`
}

type Client struct {
	ClientCode string `json:"client_code"`
	ClientName string `json:"client_name"`
}

// Dataset is the content of one uploaded workbook.
type Dataset struct {
	Transactions []Transaction `json:"transactions"`
	Products     []Product     `json:"products"`
	Clients      []Client      `json:"clients"`
}

// Clone returns a copy that shares no backing arrays with d.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	return &Dataset{
		Transactions: slices.Clone(d.Transactions),
		Products:     slices.Clone(d.Products),
		Clients:      slices.Clone(d.Clients),
	}
}

type MonthlySales struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}
