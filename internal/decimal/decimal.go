// Package decimal provides the fixed-scale decimal type used for all
// prices and quantities in the matching engine. It wraps
// github.com/shopspring/decimal and adds the engine's scale ceiling:
// no value may carry more than MaxScale fractional digits.
package decimal

import (
	"fmt"

	shopspring "github.com/shopspring/decimal"
)

// MaxScale is the maximum number of fractional digits the engine will
// accept on any price or quantity.
const MaxScale = 8

// Decimal is an exact fixed-point value. Zero value is 0.
type Decimal = shopspring.Decimal

// Zero is the additive identity.
var Zero = shopspring.Zero

// Parse converts a decimal string into a Decimal, rejecting values with
// more than MaxScale fractional digits. This is the only entry point
// for turning external input (order quantities, prices) into a Decimal.
func Parse(s string) (Decimal, error) {
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if scale := -d.Exponent(); scale > MaxScale {
		return Zero, fmt.Errorf("decimal %q exceeds max scale %d", s, MaxScale)
	}
	return d, nil
}

// MustParse parses s and panics on error. For use with literal
// constants in tests and fixtures only.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Decimal) Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
