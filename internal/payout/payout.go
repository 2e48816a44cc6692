package payout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate converts points into a fiat payout. Only whole multiples of
// PointsPerUnit are paid.
type Rate struct {
	PointsPerUnit int64
	UnitAmount    decimal.Decimal
	Currency      string
}

// Amount is a quoted payout.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Value.StringFixed(2), a.Currency)
}

// NewRate parses unitAmount as a decimal.
func NewRate(pointsPerUnit int64, unitAmount, currency string) (Rate, error) {
	if pointsPerUnit <= 0 {
		return Rate{}, fmt.Errorf("points per unit must be positive")
	}
	amount, err := decimal.NewFromString(unitAmount)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid unit amount %q: %w", unitAmount, err)
	}
	if amount.IsNegative() {
		return Rate{}, fmt.Errorf("unit amount must not be negative")
	}
	return Rate{PointsPerUnit: pointsPerUnit, UnitAmount: amount, Currency: currency}, nil
}

// Quote returns the payout for points.
func (r Rate) Quote(points int64) Amount {
	if points <= 0 || r.PointsPerUnit <= 0 {
		return Amount{Value: decimal.Zero, Currency: r.Currency}
	}
	units := points / r.PointsPerUnit
	return Amount{
		Value:    r.UnitAmount.Mul(decimal.NewFromInt(units)),
		Currency: r.Currency,
	}
}
