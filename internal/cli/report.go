package cli

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/google/subcommands"

	"sales-dashboard/internal/report"
	"sales-dashboard/internal/sales"
)

type reportCmd struct {
	category string
	currency string
	author   string
	top      int
	output   string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "export the dashboard as PDF" }
func (*reportCmd) Usage() string {
	return `salesctl report [-category <name>] [-currency <code>] [-author <name>] [-o <file>] <workbook.xlsx>

  Writes the PDF overview: KPIs, charts and the best selling products.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", sales.AllCategories, "Product category to report on")
	f.StringVar(&c.currency, "currency", "DZD", "ISO 4217 currency used to format revenue")
	f.StringVar(&c.author, "author", "", "Author recorded in the PDF metadata")
	f.IntVar(&c.top, "top", sales.DefaultTopProducts, "Number of products in the ranking table")
	f.StringVar(&c.output, "o", report.PDFFileName, "Output file, or - for stdout")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	snap, err := snapshotFor(f.Args(), c.category, c.top)
	if err != nil {
		return fail(err)
	}

	out, err := createOutput(c.output)
	if err != nil {
		return fail(err)
	}
	err = report.WritePDF(ctx, out, snap, report.PDFOptions{
		Currency:    strings.ToUpper(c.currency),
		Author:      c.author,
		CreatedAt:   time.Now(),
		TopProducts: c.top,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
