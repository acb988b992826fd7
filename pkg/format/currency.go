package format

import "github.com/shopspring/decimal"

// CLP renders an amount the way es-CL renders Chilean pesos: no decimals,
// dot thousands separator and a leading "$" (e.g. -$1.234.567).
func CLP(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	s := "$" + groupThousands(rounded.Abs().String(), ".")
	if rounded.IsNegative() {
		return "-" + s
	}
	return s
}
