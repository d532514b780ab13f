package domain

import (
	"fmt"

	"github.com/govalues/decimal"
)

// MoneyScale is the number of decimal places kept for prices and cash.
const MoneyScale = 2

// ParseMoney parses a decimal string amount. It rejects values with more
// than 2 significant decimal places and pads the result to exactly 2.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.Parse(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return normalizeMoney(d)
}

// MoneyFromFloat converts a float64 amount, with the same precision rule as
// ParseMoney.
func MoneyFromFloat(f float64) (decimal.Decimal, error) {
	d, err := decimal.NewFromFloat64(f)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid monetary value %v: %w", f, err)
	}
	return normalizeMoney(d)
}

// MustMoney is ParseMoney for constants and tests. It panics on error.
func MustMoney(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Cost returns price*amount. A negative amount yields a negative cost.
func Cost(price decimal.Decimal, amount int64) (decimal.Decimal, error) {
	qty, err := decimal.New(amount, 0)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return price.Mul(qty)
}

var (
	halfCent = decimal.MustNew(5, MoneyScale+1)
	oneCent  = decimal.MustNew(1, MoneyScale)
)

// RoundMoney rounds d to cents, with halves rounded away from zero.
func RoundMoney(d decimal.Decimal) (decimal.Decimal, error) {
	t := d.Trunc(MoneyScale)
	rem, err := d.Sub(t)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rem.CmpAbs(halfCent) >= 0 {
		step := oneCent
		if d.Sign() < 0 {
			step = step.Neg()
		}
		if t, err = t.Add(step); err != nil {
			return decimal.Decimal{}, err
		}
	}
	return t.Pad(MoneyScale), nil
}

func normalizeMoney(d decimal.Decimal) (decimal.Decimal, error) {
	if d.Trim(MoneyScale).Scale() > MoneyScale {
		return decimal.Decimal{}, fmt.Errorf("monetary values must have at most 2 decimal places")
	}
	return d.Trim(MoneyScale).Pad(MoneyScale), nil
}
