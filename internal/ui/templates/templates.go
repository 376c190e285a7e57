// Package templates renders the dashboard page and the fragments patched
// over SSE when the category changes.
package templates

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/report"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/workbook"
)

// MaxTableRows caps the transactions table; the full list is served by the
// JSON API.
const MaxTableRows = 200

// PageData is everything the full page needs. Snapshot is nil until a
// workbook has been uploaded.
type PageData struct {
	Snapshot     *sales.Snapshot
	FileName     string
	Currency     string
	Error        string
	TemplateName string
}

func (d PageData) templateName() string {
	if d.TemplateName == "" {
		return workbook.TemplateFileName
	}
	return d.TemplateName
}

// LoadErrorMessage is the banner shown when an upload is rejected.
func LoadErrorMessage(err error) string {
	return "Erreur lors du chargement du fichier : " + err.Error()
}

// signals seeds the client-side state with the selected category.
func signals(s *sales.Snapshot) string {
	category := sales.AllCategories
	if s != nil {
		category = s.Category
	}
	b, _ := json.Marshal(map[string]string{"category": category})
	return string(b)
}

func chartURL(kind report.Kind, category string) string {
	return "/charts/" + string(kind) + "?category=" + url.QueryEscape(category)
}

func reportURL(category string) templ.SafeURL {
	return templ.URL("/report.pdf?category=" + url.QueryEscape(category))
}

func visibleRows(txs []models.Transaction) []models.Transaction {
	if len(txs) > MaxTableRows {
		return txs[:MaxTableRows]
	}
	return txs
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
