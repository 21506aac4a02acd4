package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits the ledger stores.
const MoneyScale = 2

// ValidMoneyScale reports whether d is stored without rounding.
func ValidMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}
