// Package report draws the dashboard charts and writes the PDF export from a
// sales snapshot.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"sales-dashboard/internal/sales"
)

// ErrNotEnoughData is returned when a chart has nothing to draw.
var ErrNotEnoughData = errors.New("not enough data to draw the chart")

type Kind string

const (
	KindMonthly     Kind = "monthly"
	KindCategory    Kind = "category"
	KindTopProducts Kind = "top-products"
)

var Kinds = []Kind{KindMonthly, KindCategory, KindTopProducts}

func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

func (k Kind) Title() string {
	switch k {
	case KindMonthly:
		return "Évolution des ventes (par mois)"
	case KindCategory:
		return "Répartition des ventes par catégorie"
	case KindTopProducts:
		return "Meilleurs produits (par ventes)"
	default:
		return string(k)
	}
}

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

func (f Format) ContentType() string {
	if f == FormatPNG {
		return chart.ContentTypePNG
	}
	return chart.ContentTypeSVG
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatPNG {
		return chart.PNG
	}
	return chart.SVG
}

// Charts renders the dashboard charts at a fixed size.
type Charts struct {
	Width    int
	Height   int
	Currency string
}

func NewCharts(currency string) Charts {
	return Charts{Width: 800, Height: 400, Currency: currency}
}

func (c Charts) Render(w io.Writer, kind Kind, s *sales.Snapshot, format Format) error {
	switch kind {
	case KindMonthly:
		return c.monthly(w, s, format)
	case KindCategory:
		return c.category(w, s, format)
	case KindTopProducts:
		return c.topProducts(w, s, format)
	default:
		return fmt.Errorf("unknown chart %q", kind)
	}
}

func (c Charts) background() chart.Style {
	return chart.Style{
		Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
	}
}

func (c Charts) monthly(w io.Writer, s *sales.Snapshot, format Format) error {
	if len(s.Monthly) == 0 {
		return ErrNotEnoughData
	}

	series := chart.TimeSeries{
		Name: "Chiffre d'affaires",
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			StrokeWidth: 2,
			DotColor:    chart.ColorBlue,
			DotWidth:    4,
		},
	}
	maxY := 0.0
	for _, m := range s.Monthly {
		month, err := time.Parse("2006-01", m.Month)
		if err != nil {
			return fmt.Errorf("parse month %q: %w", m.Month, err)
		}
		v := m.Revenue.InexactFloat64()
		series.XValues = append(series.XValues, month)
		series.YValues = append(series.YValues, v)
		maxY = max(maxY, v)
	}

	graph := chart.Chart{
		Title:      KindMonthly.Title(),
		Width:      c.Width,
		Height:     c.Height,
		Background: c.background(),
		XAxis: chart.XAxis{
			Name:           "Mois",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			Name:  fmt.Sprintf("Chiffre d'affaires (%s)", c.currency()),
			Range: &chart.ContinuousRange{Min: 0, Max: niceMax(maxY)},
		},
		Series: []chart.Series{series},
	}

	// A single month has no x extent of its own.
	if len(series.XValues) == 1 {
		only := series.XValues[0]
		graph.XAxis.Range = &chart.ContinuousRange{
			Min: chart.TimeToFloat64(only.AddDate(0, 0, -15)),
			Max: chart.TimeToFloat64(only.AddDate(0, 0, 15)),
		}
	}

	return graph.Render(format.provider(), w)
}

func (c Charts) category(w io.Writer, s *sales.Snapshot, format Format) error {
	values := make([]chart.Value, 0, len(s.ByCategory))
	for _, cs := range s.ByCategory {
		if !cs.Revenue.IsPositive() {
			continue
		}
		values = append(values, chart.Value{Label: cs.Category, Value: cs.Revenue.InexactFloat64()})
	}
	if len(values) == 0 {
		return ErrNotEnoughData
	}

	pie := chart.PieChart{
		Title:      KindCategory.Title(),
		Width:      c.Height,
		Height:     c.Height,
		Background: c.background(),
		Values:     values,
	}
	return pie.Render(format.provider(), w)
}

func (c Charts) topProducts(w io.Writer, s *sales.Snapshot, format Format) error {
	if len(s.TopProducts) == 0 {
		return ErrNotEnoughData
	}

	bars := make([]chart.Value, 0, len(s.TopProducts))
	maxY := 0.0
	for _, p := range s.TopProducts {
		v := p.TotalRevenue.InexactFloat64()
		bars = append(bars, chart.Value{Label: p.ProductName, Value: v})
		maxY = max(maxY, v)
	}

	bar := chart.BarChart{
		Title:      KindTopProducts.Title(),
		Width:      c.Width,
		Height:     c.Height,
		Background: c.background(),
		BarWidth:   max(10, (c.Width-100)/(2*len(bars))),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: niceMax(maxY)},
		},
		Bars: bars,
	}
	return bar.Render(format.provider(), w)
}

func (c Charts) currency() string {
	if c.Currency == "" {
		return DefaultCurrency
	}
	return c.Currency
}

// niceMax leaves headroom above the tallest value and never returns zero.
func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v * 1.1
}
