package sales

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// NoData replaces every KPI value when there is nothing to aggregate.
const NoData = "Aucune donnée"

const (
	KeyTotalRevenue      = "TotalRevenue"
	KeyTransactionCount  = "TransactionCount"
	KeyTotalQuantitySold = "TotalQuantitySold"
	KeyTopProductBySales = "TopProductBySales"
	KeyTopClientBySpend  = "TopClientBySpend"
)

// Keys lists the KPI keys in report order.
var Keys = []string{
	KeyTotalRevenue,
	KeyTransactionCount,
	KeyTotalQuantitySold,
	KeyTopProductBySales,
	KeyTopClientBySpend,
}

var titles = map[string]string{
	KeyTotalRevenue:      "Chiffre d'affaires total",
	KeyTransactionCount:  "Nombre total de transactions",
	KeyTotalQuantitySold: "Quantité totale vendue",
	KeyTopProductBySales: "Top produit par ventes",
	KeyTopClientBySpend:  "Top client par dépenses",
}

// Title returns the display label of a KPI key.
func Title(key string) string {
	return titles[key]
}

// Value is either a number or a text.
type Value struct {
	number   decimal.Decimal
	text     string
	isNumber bool
}

func Number(d decimal.Decimal) Value { return Value{number: d, isNumber: true} }
func Text(s string) Value            { return Value{text: s} }

func (v Value) IsNumber() bool          { return v.isNumber }
func (v Value) Number() decimal.Decimal { return v.number }

func (v Value) String() string {
	if v.isNumber {
		return v.number.String()
	}
	return v.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNumber {
		return []byte(v.number.String()), nil
	}
	return json.Marshal(v.text)
}

type KPI struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Value Value  `json:"value"`
}

// KPISet is the ordered KPI mapping handed to the report renderers.
type KPISet []KPI

func (s KPISet) Get(key string) (Value, bool) {
	for _, k := range s {
		if k.Key == key {
			return k.Value, true
		}
	}
	return Value{}, false
}

func (s KPISet) Map() map[string]Value {
	m := make(map[string]Value, len(s))
	for _, k := range s {
		m[k.Key] = k.Value
	}
	return m
}

// Empty reports whether the set was computed over no transactions.
func (s KPISet) Empty() bool {
	for _, k := range s {
		if k.Value.IsNumber() || k.Value.String() != NoData {
			return false
		}
	}
	return true
}

// ComputeKPIs aggregates the five dashboard metrics over txs.
func ComputeKPIs(txs []models.Transaction) KPISet {
	if len(txs) == 0 {
		set := make(KPISet, 0, len(Keys))
		for _, key := range Keys {
			set = append(set, KPI{Key: key, Title: titles[key], Value: Text(NoData)})
		}
		return set
	}

	revenue := decimal.Zero
	quantity := decimal.Zero
	byProduct := make(map[string]decimal.Decimal)
	byClient := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		revenue = revenue.Add(tx.TotalPrice)
		quantity = quantity.Add(tx.Quantity)
		if tx.ProductName != "" {
			byProduct[tx.ProductName] = byProduct[tx.ProductName].Add(tx.TotalPrice)
		}
		if tx.ClientName != "" {
			byClient[tx.ClientName] = byClient[tx.ClientName].Add(tx.TotalPrice)
		}
	}

	return KPISet{
		{Key: KeyTotalRevenue, Title: titles[KeyTotalRevenue], Value: Number(revenue)},
		{Key: KeyTransactionCount, Title: titles[KeyTransactionCount], Value: Number(decimal.NewFromInt(int64(len(txs))))},
		{Key: KeyTotalQuantitySold, Title: titles[KeyTotalQuantitySold], Value: Number(quantity)},
		{Key: KeyTopProductBySales, Title: titles[KeyTopProductBySales], Value: Text(topGroup(byProduct))},
		{Key: KeyTopClientBySpend, Title: titles[KeyTopClientBySpend], Value: Text(topGroup(byClient))},
	}
}

// topGroup returns the key with the largest sum; ties go to the smallest key.
func topGroup(groups map[string]decimal.Decimal) string {
	best := NoData
	var bestSum decimal.Decimal
	for i, key := range slices.Sorted(maps.Keys(groups)) {
		if i == 0 || groups[key].GreaterThan(bestSum) {
			best, bestSum = key, groups[key]
		}
	}
	return best
}
