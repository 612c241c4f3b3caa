// Package money holds the integer minor-unit amount type used by the ledger
// and the validator that turns caller supplied values into it.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits an amount may carry.
const Scale = 2

// MaxCents is the largest amount storable in a decimal(15,2) column.
const MaxCents Cents = 999_999_999_999_999

// maxIntegerDigits is the number of digits MaxCents carries left of the point.
const maxIntegerDigits = 13

// maxAmountText bounds the textual form of an amount. Anything longer cannot
// be a valid amount short of absurd zero padding.
const maxAmountText = 64

// maxCoefficientBits bounds the unscaled value of a decimal before any
// rescaling arithmetic is attempted.
const maxCoefficientBits = 256

// ErrInvalidAmount is the sentinel matched by every amount validation failure.
var ErrInvalidAmount = errors.New("invalid amount")

// Reason distinguishes why an amount was rejected.
type Reason string

const (
	// ReasonMissing means no amount was supplied at all.
	ReasonMissing Reason = "missing"
	// ReasonMalformed means a value was supplied but is not a positive
	// number with at most two decimal places.
	ReasonMalformed Reason = "malformed"
)

// AmountError describes a rejected amount.
type AmountError struct {
	Reason Reason
	Value  string
}

func (e *AmountError) Error() string {
	if e.Reason == ReasonMissing {
		return "invalid amount: missing"
	}
	return fmt.Sprintf("invalid amount: %q is not a positive number with at most %d decimal places", e.Value, Scale)
}

// Is reports whether target is ErrInvalidAmount.
func (e *AmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

// Cents is a monetary amount in minor units.
type Cents int64

// Parse validates a raw amount as produced by a JSON decoder configured with
// UseNumber, or a Go numeric value, and converts it to minor units.
func Parse(raw any) (Cents, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return 0, &AmountError{Reason: ReasonMissing}
	case json.Number:
		parsed, err := parseText(v.String())
		if err != nil {
			return 0, err
		}
		d = parsed
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, malformed(fmt.Sprint(v))
		}
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	case decimal.Decimal:
		d = v
	default:
		return 0, malformed(fmt.Sprint(v))
	}
	return FromDecimal(d)
}

// FromDecimal converts an exact decimal amount into minor units.
//
// The magnitude is checked on the coefficient and exponent before any
// rescaling, so values like 1e50000000 are rejected without materialising
// their expansion.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	if !d.IsPositive() {
		return 0, malformed(describe(d))
	}
	coef := d.Coefficient()
	if coef.BitLen() > maxCoefficientBits {
		return 0, malformed(describe(d))
	}
	exp := int64(d.Exponent())

	ten := big.NewInt(10)
	for exp < -Scale {
		q, r := new(big.Int).QuoRem(coef, ten, new(big.Int))
		if r.Sign() != 0 {
			break
		}
		coef = q
		exp++
	}
	if exp < -Scale {
		return 0, malformed(describe(d))
	}
	if int64(len(coef.Text(10)))+exp > maxIntegerDigits {
		return 0, malformed(describe(d))
	}

	cents := new(big.Int).Mul(coef, new(big.Int).Exp(ten, big.NewInt(exp+Scale), nil))
	if !cents.IsInt64() || cents.Int64() > int64(MaxCents) {
		return 0, malformed(describe(d))
	}
	return Cents(cents.Int64()), nil
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(s string) Cents {
	c, err := Parse(json.Number(s))
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that an already converted amount is usable for a mutation.
func (c Cents) Validate() error {
	if c <= 0 || c > MaxCents {
		return malformed(c.String())
	}
	return nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -Scale)
}

// String formats the amount in major units without trailing zeros, e.g. 5000.78 or 1000.
func (c Cents) String() string {
	return c.Decimal().String()
}

// MarshalJSON renders the amount as a JSON number in major units.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number in major units.
func (c *Cents) UnmarshalJSON(b []byte) error {
	parsed, err := parseText(string(b))
	if err != nil {
		return err
	}
	if parsed.IsZero() {
		*c = 0
		return nil
	}
	v, err := FromDecimal(parsed)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Add returns c+o, reporting false when the sum leaves the storable range.
func (c Cents) Add(o Cents) (Cents, bool) {
	sum := c + o
	if (o > 0 && sum < c) || (o < 0 && sum > c) || sum > MaxCents {
		return 0, false
	}
	return sum, true
}

func parseText(s string) (decimal.Decimal, error) {
	if len(s) > maxAmountText {
		return decimal.Decimal{}, malformed(s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, malformed(s)
	}
	return d, nil
}

// describe renders d for an error without expanding a large exponent.
func describe(d decimal.Decimal) string {
	if d.Coefficient().BitLen() > maxCoefficientBits {
		return "value out of range"
	}
	exp := d.Exponent()
	if exp < -maxAmountText || exp > maxAmountText {
		return d.Coefficient().String() + "e" + strconv.FormatInt(int64(exp), 10)
	}
	return d.String()
}

// malformed caps the echoed value so an oversized input is not carried into
// logs and responses.
func malformed(v string) error {
	if len(v) > maxAmountText {
		v = v[:maxAmountText] + "..."
	}
	return &AmountError{Reason: ReasonMalformed, Value: v}
}
