package society

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// display renders an amount in the store currency, e.g. "₹1,400.00".
func (s *Store) display(amount decimal.Decimal) string {
	cur := *money.New(0, s.currency).Currency()
	return cur.Formatter().Format(amount.Shift(int32(cur.Fraction)).IntPart())
}

// percent returns round(part/total*100), or 0 when total is zero.
func percent(part, total decimal.Decimal) int {
	if total.IsZero() {
		return 0
	}
	return int(part.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}
