package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"time"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/sales"
)

const (
	PDFFileName = "dashboard.pdf"
	PDFTitle    = "Tableau de Bord : Vue d'ensemble"

	fontRegular = "go"
	fontBold    = "go-bold"

	pageMargin = 40.0
	lineHeight = 18.0
)

type PDFOptions struct {
	Currency  string
	Author    string
	CreatedAt time.Time
	// TopProducts caps the product table; zero prints every product.
	TopProducts int
}

// WritePDF writes the KPI overview, the top products table and the charts
// that have data.
func WritePDF(ctx context.Context, w io.Writer, s *sales.Snapshot, opts PDFOptions) error {
	images, err := renderChartImages(ctx, s, opts.Currency)
	if err != nil {
		return err
	}

	doc, err := newDocument(opts)
	if err != nil {
		return err
	}
	if err := doc.header(s); err != nil {
		return err
	}
	if err := doc.kpis(s.KPIs, opts.Currency); err != nil {
		return err
	}
	if err := doc.productTable(s, opts); err != nil {
		return err
	}
	for _, img := range images {
		if img == nil {
			continue
		}
		if err := doc.image(img); err != nil {
			return err
		}
	}

	if _, err := doc.pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// renderChartImages draws every chart as PNG concurrently. Charts without
// data are left nil.
func renderChartImages(ctx context.Context, s *sales.Snapshot, currency string) ([][]byte, error) {
	charts := NewCharts(currency)
	images := make([][]byte, len(Kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			err := charts.Render(&buf, kind, s, FormatPNG)
			if errors.Is(err, ErrNotEnoughData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("render %s chart: %w", kind, err)
			}
			images[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

type document struct {
	pdf    *gopdf.GoPdf
	width  float64
	height float64
}

func newDocument(opts PDFOptions) (*document, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("load bold font: %w", err)
	}

	created := opts.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        PDFTitle,
		Author:       opts.Author,
		Creator:      "sales-dashboard",
		CreationDate: created,
	})
	pdf.AddPage()

	return &document{
		pdf:    pdf,
		width:  gopdf.PageSizeA4.W - 2*pageMargin,
		height: gopdf.PageSizeA4.H,
	}, nil
}

// ensure starts a new page when fewer than h points remain.
func (d *document) ensure(h float64) {
	if d.pdf.GetY()+h > d.height-pageMargin {
		d.pdf.AddPage()
		d.pdf.SetXY(pageMargin, pageMargin)
	}
}

func (d *document) line(text string, align int) error {
	d.ensure(lineHeight)
	d.pdf.SetX(pageMargin)
	if err := d.pdf.CellWithOption(&gopdf.Rect{W: d.width, H: lineHeight}, text, gopdf.CellOption{Align: align | gopdf.Middle}); err != nil {
		return fmt.Errorf("write %q: %w", text, err)
	}
	d.pdf.Br(lineHeight)
	return nil
}

func (d *document) header(s *sales.Snapshot) error {
	d.pdf.SetXY(pageMargin, pageMargin)
	if err := d.pdf.SetFont(fontBold, "", 18); err != nil {
		return err
	}
	if err := d.line(PDFTitle, gopdf.Center); err != nil {
		return err
	}
	d.pdf.Br(lineHeight / 2)

	if err := d.pdf.SetFont(fontRegular, "", 11); err != nil {
		return err
	}
	d.pdf.SetTextColor(90, 90, 90)
	defer d.pdf.SetTextColor(0, 0, 0)
	return d.line("Catégorie : "+s.Category, gopdf.Left)
}

func (d *document) kpis(set sales.KPISet, currency string) error {
	d.pdf.Br(lineHeight / 2)
	if err := d.pdf.SetFont(fontRegular, "", 12); err != nil {
		return err
	}
	for _, k := range set {
		if err := d.line(k.Title+" : "+DisplayValue(k, currency), gopdf.Left); err != nil {
			return err
		}
	}
	return nil
}

func (d *document) productTable(s *sales.Snapshot, opts PDFOptions) error {
	products := s.TopProducts
	if opts.TopProducts > 0 && len(products) > opts.TopProducts {
		products = products[:opts.TopProducts]
	}
	if len(products) == 0 {
		return nil
	}

	d.pdf.Br(lineHeight)
	if err := d.pdf.SetFont(fontBold, "", 13); err != nil {
		return err
	}
	if err := d.line(KindTopProducts.Title(), gopdf.Left); err != nil {
		return err
	}

	widths := []float64{d.width * 0.5, d.width * 0.2, d.width * 0.3}
	row := func(cells []string, bold bool) error {
		d.ensure(lineHeight)
		font := fontRegular
		if bold {
			font = fontBold
		}
		if err := d.pdf.SetFont(font, "", 10); err != nil {
			return err
		}
		x := pageMargin
		for i, text := range cells {
			d.pdf.SetX(x)
			align := gopdf.Left
			if i > 0 {
				align = gopdf.Right
			}
			opt := gopdf.CellOption{Align: align | gopdf.Middle, Border: gopdf.Bottom}
			if err := d.pdf.CellWithOption(&gopdf.Rect{W: widths[i], H: lineHeight}, text, opt); err != nil {
				return err
			}
			x += widths[i]
		}
		d.pdf.Br(lineHeight)
		return nil
	}

	if err := row([]string{"Produit", "Quantité totale", "Revenus totaux"}, true); err != nil {
		return err
	}
	for _, p := range products {
		cells := []string{
			p.ProductName,
			p.TotalQuantity.String(),
			FormatMoney(p.TotalRevenue, opts.Currency),
		}
		if err := row(cells, false); err != nil {
			return fmt.Errorf("product %q: %w", p.ProductName, err)
		}
	}
	return nil
}

func (d *document) image(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode chart image: %w", err)
	}
	holder, err := gopdf.ImageHolderByBytes(data)
	if err != nil {
		return fmt.Errorf("load chart image: %w", err)
	}

	// Charts are drawn for an 800 pixel width; keep their aspect ratio.
	scale := d.width / 800
	w, h := float64(cfg.Width)*scale, float64(cfg.Height)*scale
	if w > d.width {
		w, h = d.width, h*d.width/w
	}

	d.pdf.Br(lineHeight)
	d.ensure(h)
	y := d.pdf.GetY()
	x := pageMargin + (d.width-w)/2
	if err := d.pdf.ImageByHolder(holder, x, y, &gopdf.Rect{W: w, H: h}); err != nil {
		return fmt.Errorf("place chart image: %w", err)
	}
	d.pdf.SetY(y + h)
	return nil
}

// DisplayValue formats a KPI the way it is shown to users: revenue as money,
// everything else as is.
func DisplayValue(k sales.KPI, currency string) string {
	if k.Key == sales.KeyTotalRevenue && k.Value.IsNumber() {
		return FormatMoney(k.Value.Number(), currency)
	}
	return k.Value.String()
}
