// Package money converts commercetools minor-unit amounts into exact decimals.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
)

// ToCurrencyUnits shifts centAmount by fractionDigits: 1234 with 2 digits is 12.34.
func ToCurrencyUnits(centAmount int64, fractionDigits int) decimal.Decimal {
	return decimal.New(centAmount, -int32(fractionDigits))
}

func FromMoney(m commercetools.Money) decimal.Decimal {
	return ToCurrencyUnits(m.CentAmount, m.FractionDigits)
}

// ToCents is the inverse of ToCurrencyUnits. Digits beyond fractionDigits are truncated.
func ToCents(amount decimal.Decimal, fractionDigits int) int64 {
	return amount.Shift(int32(fractionDigits)).IntPart()
}
