// Package cli implements the salesctl subcommands.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/workbook"
)

// Commands lists every salesctl subcommand writing to stdout.
var Commands = []subcommands.Command{
	&templateCmd{},
	&kpisCmd{out: os.Stdout},
	&chartCmd{},
	&reportCmd{},
}

func loadWorkbook(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return workbook.LoadReader(f)
}

// snapshotFor loads the workbook named by the single positional argument.
func snapshotFor(args []string, category string, top int) (*sales.Snapshot, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one workbook argument, got %d", len(args))
	}
	ds, err := loadWorkbook(args[0])
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = sales.AllCategories
	}
	return sales.NewSnapshot(ds, category, top), nil
}

// createOutput opens path for writing, or returns stdout for "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func usage(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitUsageError
}

// sampleDataset is the demo data written by "template -sample".
func sampleDataset() *models.Dataset {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	price := decimal.NewFromInt
	return &models.Dataset{
		Transactions: []models.Transaction{
			{TransactionID: "TX-0001", Date: day(1, 8), ProductCode: "PRD-01", ProductName: "Ordinateur portable", Quantity: decimal.NewFromInt(2), TotalPrice: price(180000), ClientCode: "CLI-01", ClientName: "Société Atlas"},
			{TransactionID: "TX-0002", Date: day(1, 21), ProductCode: "PRD-03", ProductName: "Ramette papier A4", Quantity: decimal.NewFromInt(40), TotalPrice: price(32000), ClientCode: "CLI-02", ClientName: "Librairie El Kalam"},
			{TransactionID: "TX-0003", Date: day(2, 3), ProductCode: "PRD-02", ProductName: "Imprimante laser", Quantity: decimal.NewFromInt(1), TotalPrice: price(45000), ClientCode: "CLI-01", ClientName: "Société Atlas"},
			{TransactionID: "TX-0004", Date: day(2, 17), ProductCode: "PRD-04", ProductName: "Chaise de bureau", Quantity: decimal.NewFromInt(6), TotalPrice: price(72000), ClientCode: "CLI-03", ClientName: "Cabinet Benali"},
			{TransactionID: "TX-0005", Date: day(3, 5), ProductCode: "PRD-03", ProductName: "Ramette papier A4", Quantity: decimal.NewFromInt(25), TotalPrice: price(20000), ClientCode: "CLI-03", ClientName: "Cabinet Benali"},
			{TransactionID: "TX-0006", Date: day(3, 26), ProductCode: "PRD-01", ProductName: "Ordinateur portable", Quantity: decimal.NewFromInt(1), TotalPrice: price(90000), ClientCode: "CLI-02", ClientName: "Librairie El Kalam"},
		},
		Products: []models.Product{
			{ProductCode: "PRD-01", ProductName: "Ordinateur portable", Category: "Informatique", UnitPrice: price(90000), StockQuantity: decimal.NewFromInt(12)},
			{ProductCode: "PRD-02", ProductName: "Imprimante laser", Category: "Informatique", UnitPrice: price(45000), StockQuantity: decimal.NewFromInt(4)},
			{ProductCode: "PRD-03", ProductName: "Ramette papier A4", Category: "Papeterie", UnitPrice: price(800), StockQuantity: decimal.NewFromInt(300)},
			{ProductCode: "PRD-04", ProductName: "Chaise de bureau", Category: "Mobilier", UnitPrice: price(12000), StockQuantity: decimal.NewFromInt(20)},
		},
		Clients: []models.Client{
			{ClientCode: "CLI-01", ClientName: "Société Atlas"},
			{ClientCode: "CLI-02", ClientName: "Librairie El Kalam"},
			{ClientCode: "CLI-03", ClientName: "Cabinet Benali"},
		},
	}
}
