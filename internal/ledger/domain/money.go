package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPrecision is the number of decimal places kept on all amounts.
const MoneyPrecision = 2

// RoundMoney normalizes an amount to ledger precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}

// ParseMoney parses a decimal amount string at ledger precision.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount %q", ErrValidation, s)
	}
	return d.Round(MoneyPrecision), nil
}
