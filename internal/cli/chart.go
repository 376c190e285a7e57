package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"sales-dashboard/internal/report"
	"sales-dashboard/internal/sales"
)

type chartCmd struct {
	kind     string
	format   string
	category string
	currency string
	output   string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render one dashboard chart" }
func (*chartCmd) Usage() string {
	return `salesctl chart -kind <monthly|category|top-products> [-format svg|png] [-category <name>] -o <file> <workbook.xlsx>

  Renders one of the dashboard charts for a workbook.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(report.KindMonthly), "Chart to render: monthly, category or top-products")
	f.StringVar(&c.format, "format", string(report.FormatSVG), "Image format: svg or png")
	f.StringVar(&c.category, "category", sales.AllCategories, "Product category to chart")
	f.StringVar(&c.currency, "currency", "DZD", "ISO 4217 currency used in axis labels")
	f.StringVar(&c.output, "o", "-", "Output file, or - for stdout")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, ok := report.ParseKind(c.kind)
	if !ok {
		return usage(fmt.Errorf("unknown chart %q", c.kind))
	}
	format := report.Format(c.format)
	if format != report.FormatSVG && format != report.FormatPNG {
		return usage(fmt.Errorf("unknown format %q", c.format))
	}

	snap, err := snapshotFor(f.Args(), c.category, sales.DefaultTopProducts)
	if err != nil {
		return fail(err)
	}

	out, err := createOutput(c.output)
	if err != nil {
		return fail(err)
	}
	err = report.NewCharts(c.currency).Render(out, kind, snap, format)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
