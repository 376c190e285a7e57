package workbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
)

const dateLayout = "2006-01-02"

// Template returns an empty workbook containing the three sheets and their
// header rows.
func Template() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteTemplate(w io.Writer) error {
	return Write(w, nil)
}

// Write produces a workbook in the template layout holding the records of
// ds. A nil ds yields the empty template.
func Write(w io.Writer, ds *models.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, schema := range schemas {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", schema.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(schema.Name); err != nil {
			return fmt.Errorf("create sheet %q: %w", schema.Name, err)
		}

		if err := writeHeader(f, schema, headerStyle); err != nil {
			return fmt.Errorf("sheet %q: %w", schema.Name, err)
		}
		if ds == nil {
			continue
		}
		for i, row := range records(schema.Name, ds) {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(schema.Name, cell, &row); err != nil {
				return fmt.Errorf("sheet %q row %d: %w", schema.Name, i+2, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, schema sheetSchema, style int) error {
	row := make([]any, len(schema.Headers))
	for i, h := range schema.Headers {
		row[i] = h
	}
	if err := f.SetSheetRow(schema.Name, "A1", &row); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(schema.Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(schema.Name, "A1", last+"1", style); err != nil {
		return err
	}

	for i, width := range schema.Widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(schema.Name, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(schema.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// records lays out the rows of sheet in header order.
func records(sheet string, ds *models.Dataset) [][]any {
	var rows [][]any
	switch sheet {
	case SheetTransactions:
		for _, t := range ds.Transactions {
			date := ""
			if !t.Date.IsZero() {
				date = t.Date.Format(dateLayout)
			}
			rows = append(rows, []any{
				t.TransactionID, date, t.ProductCode, t.ProductName,
				t.Quantity.InexactFloat64(), t.TotalPrice.InexactFloat64(), t.ClientCode, t.ClientName,
			})
		}
	case SheetProducts:
		for _, p := range ds.Products {
			rows = append(rows, []any{
				p.ProductCode, p.ProductName, p.Category,
				p.UnitPrice.InexactFloat64(), p.StockQuantity.InexactFloat64(),
			})
		}
	case SheetClients:
		for _, c := range ds.Clients {
			rows = append(rows, []any{c.ClientCode, c.ClientName})
		}
	}
	return rows
}
