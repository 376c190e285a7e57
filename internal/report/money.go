package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = money.DZD

// FormatMoney renders amount in the currency's fraction and separators, with
// the ISO code after the number ("1,250.00 DZD").
func FormatMoney(amount decimal.Decimal, code string) string {
	if code == "" {
		code = DefaultCurrency
	}
	// money.New never yields a nil currency, unlike money.GetCurrency.
	cur := *money.New(0, code).Currency()
	f := money.NewFormatter(cur.Fraction, cur.Decimal, cur.Thousand, cur.Code, "1 $")
	return f.Format(amount.Shift(int32(cur.Fraction)).Round(0).IntPart())
}
