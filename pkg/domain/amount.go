package domain

import (
	"fmt"
	"math/big"
)

// Amount is a non-negative integer quantity in the smallest unit of
// either the native settlement currency or the sale asset. Payment
// amounts routinely exceed int64 range (one native unit is 1e18 smallest
// units), so the representation is a big.Int kept immutable by copying
// on every operation.
type Amount struct {
	i *big.Int
}

// NativeUnitScale is the number of smallest native-currency units in one
// whole native unit. Quotes divide by this scale so conversion rates can
// be expressed as asset units per whole native unit.
var NativeUnitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ZeroAmount returns the zero quantity.
func ZeroAmount() Amount {
	return Amount{i: new(big.Int)}
}

// NewAmount builds an Amount from an int64 count of smallest units.
func NewAmount(v int64) Amount {
	if v < 0 {
		panic("domain: negative amount")
	}
	return Amount{i: big.NewInt(v)}
}

// NewAmountFromBig builds an Amount from a big.Int, copying the value.
func NewAmountFromBig(v *big.Int) (Amount, error) {
	if v == nil || v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount must be non-negative")
	}
	return Amount{i: new(big.Int).Set(v)}, nil
}

// ParseAmount parses a base-10 string of smallest units.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("malformed amount: %q", s)
	}
	return NewAmountFromBig(v)
}

// NativeUnits builds an Amount of whole native-currency units.
func NativeUnits(units int64) Amount {
	v := new(big.Int).Mul(big.NewInt(units), NativeUnitScale)
	return Amount{i: v}
}

func (a Amount) big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a - b, or an error if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", a, b)
	}
	return Amount{i: new(big.Int).Sub(a.big(), b.big())}, nil
}

// MulRate converts a native-currency amount into asset units at the
// given rate (asset units per whole native unit): a * rate / scale.
func (a Amount) MulRate(rate uint64) Amount {
	v := new(big.Int).Mul(a.big(), new(big.Int).SetUint64(rate))
	v.Quo(v, NativeUnitScale)
	return Amount{i: v}
}

// Cmp compares a to b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// IsPositive reports whether the amount is strictly positive.
func (a Amount) IsPositive() bool {
	return a.big().Sign() > 0
}

// String renders the amount as a base-10 count of smallest units.
func (a Amount) String() string {
	return a.big().String()
}

// MarshalJSON renders the amount as a JSON string to avoid precision
// loss in clients that parse numbers as float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a base-10 string of smallest units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("amount must be a JSON string")
	}
	parsed, err := ParseAmount(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
