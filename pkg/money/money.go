// Package money converts ledger amounts between integer minor units and
// decimal major units.
package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of minor-unit digits in one major unit.
const Decimals = 6

var ErrInvalidAmount = errors.New("money: invalid amount")

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), -Decimals)

// Amount is a ledger amount in minor units. It renders as a fixed-point
// major-unit string, so 10_500_000 is "10.500000".
type Amount uint64

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Decimals)
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse reads a major-unit decimal string such as "1250.5".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts major units to an Amount. Negative values, values
// finer than one minor unit and values beyond the ledger range are rejected.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s exceeds the ledger range", ErrInvalidAmount, d)
	}
	minor := d.Shift(Decimals)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d, Decimals)
	}
	return Amount(minor.BigInt().Uint64()), nil
}

// FromMinor converts a whole number of minor units held as a decimal, as
// produced by amortization arithmetic.
func FromMinor(d decimal.Decimal) (Amount, error) {
	return FromDecimal(d.Shift(-Decimals))
}
