package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/report"
	"sales-dashboard/internal/sales"
)

type kpisCmd struct {
	out      io.Writer
	category string
	currency string
	top      int
	asJSON   bool
}

func (*kpisCmd) Name() string     { return "kpis" }
func (*kpisCmd) Synopsis() string { return "print the KPIs of a workbook" }
func (*kpisCmd) Usage() string {
	return `salesctl kpis [-category <name>] [-currency <code>] [-top <n>] [-json] <workbook.xlsx>

  Prints the key indicators and the best selling products of a workbook,
  optionally restricted to one product category.
`
}

func (c *kpisCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", sales.AllCategories, "Product category to report on")
	f.StringVar(&c.currency, "currency", "DZD", "ISO 4217 currency used to format revenue")
	f.IntVar(&c.top, "top", sales.DefaultTopProducts, "Number of best selling products to list")
	f.BoolVar(&c.asJSON, "json", false, "Print JSON instead of tables")
}

type kpisOutput struct {
	Category    string                `json:"category"`
	KPIs        sales.KPISet          `json:"kpis"`
	TopProducts []models.ProductSales `json:"top_products"`
	Monthly     []models.MonthlySales `json:"monthly_sales"`
}

func (c *kpisCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.top <= 0 {
		return usage(fmt.Errorf("-top must be positive, got %d", c.top))
	}
	snap, err := snapshotFor(f.Args(), c.category, c.top)
	if err != nil {
		return fail(err)
	}

	if c.asJSON {
		err = c.writeJSON(snap)
	} else {
		err = c.writeTables(snap)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *kpisCmd) writeJSON(snap *sales.Snapshot) error {
	out := kpisOutput{
		Category:    snap.Category,
		KPIs:        snap.KPIs,
		TopProducts: snap.TopProducts,
		Monthly:     snap.Monthly,
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (c *kpisCmd) writeTables(snap *sales.Snapshot) error {
	fmt.Fprintf(c.out, "Catégorie : %s (%d transactions)\n\n", snap.Category, len(snap.Transactions))

	kpis := tablewriter.NewWriter(c.out)
	kpis.SetHeader([]string{"Indicateur", "Valeur"})
	kpis.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, k := range snap.KPIs {
		kpis.Append([]string{k.Title, report.DisplayValue(k, c.currency)})
	}
	kpis.Render()

	if len(snap.TopProducts) == 0 {
		_, err := fmt.Fprintln(c.out, "\nAucune vente pour cette catégorie.")
		return err
	}

	fmt.Fprintln(c.out)
	top := tablewriter.NewWriter(c.out)
	top.SetHeader([]string{"#", "Produit", "Ventes"})
	top.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for i, p := range snap.TopProducts {
		top.Append([]string{fmt.Sprint(i + 1), p.ProductName, report.FormatMoney(p.TotalRevenue, c.currency)})
	}
	top.Render()
	return nil
}
