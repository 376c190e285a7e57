// Package workbook reads and writes the three-sheet sales workbook.
package workbook

const TemplateFileName = "template_dashboard.xlsx"

const (
	SheetTransactions = "Transactions"
	SheetProducts     = "Produits et Stock"
	SheetClients      = "Clients"
)

// Header labels are the interchange format; their spelling must not change.
const (
	ColTransactionID = "Numéro Transaction"
	ColDate          = "Date"
	ColProductCode   = "Code Produit"
	ColProductName   = "Nom Produit"
	ColQuantity      = "Quantité"
	ColTotalPrice    = "Prix total"
	ColClientCode    = "Client Code"
	ColClientName    = "Nom Client"

	ColCatalogName   = "Nom du produit"
	ColCategory      = "Catégorie"
	ColUnitPrice     = "Prix de vente"
	ColStockQuantity = "Quantité en stock"
)

type sheetSchema struct {
	Name    string
	Headers []string
	Widths  []float64
}

var schemas = []sheetSchema{
	{
		Name: SheetTransactions,
		Headers: []string{
			ColTransactionID, ColDate, ColProductCode, ColProductName,
			ColQuantity, ColTotalPrice, ColClientCode, ColClientName,
		},
		Widths: []float64{20, 14, 14, 28, 12, 14, 14, 28},
	},
	{
		Name: SheetProducts,
		Headers: []string{
			ColProductCode, ColCatalogName, ColCategory, ColUnitPrice, ColStockQuantity,
		},
		Widths: []float64{14, 28, 22, 14, 18},
	},
	{
		Name:    SheetClients,
		Headers: []string{ColClientCode, ColClientName},
		Widths:  []float64{14, 28},
	},
}

// Headers returns the expected header row of sheet, or nil for an unknown sheet.
func Headers(sheet string) []string {
	for _, s := range schemas {
		if s.Name == sheet {
			return append([]string(nil), s.Headers...)
		}
	}
	return nil
}

// SheetNames returns the sheet names in workbook order.
func SheetNames() []string {
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
	}
	return names
}
