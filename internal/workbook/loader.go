package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	time.RFC3339,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// fieldColumns maps validated struct fields back to their header label.
var fieldColumns = map[string]string{
	"Quantity":      ColQuantity,
	"TotalPrice":    ColTotalPrice,
	"UnitPrice":     ColUnitPrice,
	"StockQuantity": ColStockQuantity,
}

// LoadError is the single error reported when a workbook cannot be loaded.
type LoadError struct {
	Sheet  string
	Row    int
	Column string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Sheet != "" {
		fmt.Fprintf(&b, "sheet %q", e.Sheet)
		if e.Row > 0 {
			fmt.Fprintf(&b, ", row %d", e.Row)
		}
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %q", e.Column)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadReader reads r to the end and loads it as a workbook.
func LoadReader(r io.Reader) (*models.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Reason: "could not read the uploaded file", Err: err}
	}
	return Load(data)
}

// Load parses the three sheets of the workbook. Either all tables load or an
// error is returned.
func Load(data []byte) (*models.Dataset, error) {
	if len(data) == 0 {
		return nil, &LoadError{Reason: "the file is empty"}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Reason: "the file is not a readable Excel workbook", Err: err}
	}
	defer f.Close()

	present := f.GetSheetList()
	for _, name := range SheetNames() {
		if !slices.Contains(present, name) {
			return nil, &LoadError{Sheet: name, Reason: "sheet is missing"}
		}
	}

	var ds models.Dataset

	txRows, err := readSheet(f, SheetTransactions)
	if err != nil {
		return nil, err
	}
	if ds.Transactions, err = parseTransactions(txRows); err != nil {
		return nil, err
	}

	productRows, err := readSheet(f, SheetProducts)
	if err != nil {
		return nil, err
	}
	if ds.Products, err = parseProducts(productRows); err != nil {
		return nil, err
	}

	clientRows, err := readSheet(f, SheetClients)
	if err != nil {
		return nil, err
	}
	if ds.Clients, err = parseClients(clientRows); err != nil {
		return nil, err
	}

	return &ds, nil
}

// table is a sheet body addressed by header label.
type table struct {
	file    *excelize.File
	sheet   string
	columns map[string]int
	rows    [][]string
}

// row is the 1-based spreadsheet row number of body index i.
func (t *table) row(i int) int {
	return i + 2
}

func (t *table) cell(i int, column string) string {
	idx := t.columns[column]
	if idx >= len(t.rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.rows[i][idx])
}

// numeric reports whether the cell is stored as a number. Text that merely
// looks like one is not.
func (t *table) numeric(i int, column string) bool {
	ref, err := excelize.CoordinatesToCellName(t.columns[column]+1, t.row(i))
	if err != nil {
		return false
	}
	typ, err := t.file.GetCellType(t.sheet, ref)
	if err != nil {
		return false
	}
	return typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
}

func (t *table) blank(i int) bool {
	for _, v := range t.rows[i] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readSheet(f *excelize.File, sheet string) (*table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &LoadError{Sheet: sheet, Reason: "sheet cannot be read", Err: err}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Sheet: sheet, Row: 1, Reason: "header row is missing"}
	}

	t := &table{file: f, sheet: sheet, columns: make(map[string]int), rows: rows[1:]}
	for i, label := range rows[0] {
		if _, dup := t.columns[label]; !dup {
			t.columns[label] = i
		}
	}
	for _, want := range Headers(sheet) {
		if _, ok := t.columns[want]; !ok {
			return nil, &LoadError{Sheet: sheet, Row: 1, Column: want, Reason: "required header is missing"}
		}
	}
	return t, nil
}

func parseTransactions(t *table) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(t.rows))
	for i := range t.rows {
		if t.blank(i) {
			continue
		}

		date, err := parseDate(t.cell(i, ColDate), t.numeric(i, ColDate))
		if err != nil {
			return nil, t.fail(i, ColDate, err)
		}
		qty, err := parseNumber(t.cell(i, ColQuantity))
		if err != nil {
			return nil, t.fail(i, ColQuantity, err)
		}
		total, err := parseNumber(t.cell(i, ColTotalPrice))
		if err != nil {
			return nil, t.fail(i, ColTotalPrice, err)
		}

		tx := models.Transaction{
			TransactionID: t.cell(i, ColTransactionID),
			Date:          date,
			ProductCode:   t.cell(i, ColProductCode),
			ProductName:   t.cell(i, ColProductName),
			Quantity:      qty,
			TotalPrice:    total,
			ClientCode:    t.cell(i, ColClientCode),
			ClientName:    t.cell(i, ColClientName),
		}
		if err := t.check(i, tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseProducts(t *table) ([]models.Product, error) {
	products := make([]models.Product, 0, len(t.rows))
	seen := make(map[string]int)
	for i := range t.rows {
		if t.blank(i) {
			continue
		}

		price, err := parseNumber(t.cell(i, ColUnitPrice))
		if err != nil {
			return nil, t.fail(i, ColUnitPrice, err)
		}
		stock, err := parseNumber(t.cell(i, ColStockQuantity))
		if err != nil {
			return nil, t.fail(i, ColStockQuantity, err)
		}

		p := models.Product{
			ProductCode:   t.cell(i, ColProductCode),
			ProductName:   t.cell(i, ColCatalogName),
			Category:      t.cell(i, ColCategory),
			UnitPrice:     price,
			StockQuantity: stock,
		}
		if err := t.check(i, p); err != nil {
			return nil, err
		}
		if p.ProductCode != "" {
			if first, dup := seen[p.ProductCode]; dup {
				return nil, t.fail(i, ColProductCode, fmt.Errorf("duplicate product code %q (first seen on row %d)", p.ProductCode, first))
			}
			seen[p.ProductCode] = t.row(i)
		}
		products = append(products, p)
	}
	return products, nil
}

func parseClients(t *table) ([]models.Client, error) {
	clients := make([]models.Client, 0, len(t.rows))
	seen := make(map[string]int)
	for i := range t.rows {
		if t.blank(i) {
			continue
		}

		c := models.Client{
			ClientCode: t.cell(i, ColClientCode),
			ClientName: t.cell(i, ColClientName),
		}
		if c.ClientCode != "" {
			if first, dup := seen[c.ClientCode]; dup {
				return nil, t.fail(i, ColClientCode, fmt.Errorf("duplicate client code %q (first seen on row %d)", c.ClientCode, first))
			}
			seen[c.ClientCode] = t.row(i)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (t *table) fail(i int, column string, err error) *LoadError {
	return &LoadError{Sheet: t.sheet, Row: t.row(i), Column: column, Reason: err.Error(), Err: err}
}

func (t *table) check(i int, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return t.fail(i, fieldColumns[fe.StructField()], fmt.Errorf("value must not be negative"))
	}
	return t.fail(i, "", err)
}

func parseNumber(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	s := strings.ReplaceAll(raw, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", raw)
	}
	return d, nil
}

// parseDate accepts Excel serial dates from numeric cells and the text
// layouts in dateLayouts.
func parseDate(raw string, numeric bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if numeric {
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%q is not a valid date", raw)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%q is not a valid date", raw)
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", raw)
}
