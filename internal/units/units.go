// Package units converts between on-chain fixed-point integers and decimal strings.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fractional digits shown for prices.
const DisplayPlaces int32 = 2

var (
	ErrEmpty           = errors.New("empty amount")
	ErrNegative        = errors.New("negative amount")
	ErrTooManyDecimals = errors.New("too many fractional digits")
	ErrNotNumeric      = errors.New("amount is not numeric")
)

// FormatFixed scales raw down by decimals and rounds to places fractional digits.
// A nil raw value formats as zero.
func FormatFixed(raw *big.Int, decimals uint8, places int32) string {
	if raw == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(places)
}

// FormatDisplay formats raw with the standard two display digits.
func FormatDisplay(raw *big.Int, decimals uint8) string {
	return FormatFixed(raw, decimals, DisplayPlaces)
}

// FormatFull returns the exact decimal value of raw without rounding.
func FormatFull(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ParseFixed converts a user supplied decimal string into the contract's
// fixed-point integer representation.
func ParseFixed(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmpty
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, value)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q", ErrNegative, value)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q allows %d", ErrTooManyDecimals, value, decimals)
	}
	return scaled.BigInt(), nil
}

// Compare compares two decimal strings, returning -1, 0 or 1.
func Compare(a, b string) (int, error) {
	da, err := decimal.NewFromString(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, a)
	}
	db, err := decimal.NewFromString(strings.TrimSpace(b))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, b)
	}
	return da.Cmp(db), nil
}

// FormatFloat renders a float market value. Values of at least one are shown
// with the display digits; smaller values keep their precision.
func FormatFloat(v float64) string {
	return formatDecimal(decimal.NewFromFloat(v))
}

// Round rounds v to places fractional digits.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Scale multiplies v by factor and formats the product like FormatFloat.
func Scale(v float64, factor string) string {
	return formatDecimal(decimal.NewFromFloat(v).Mul(decimal.RequireFromString(factor)))
}

func formatDecimal(d decimal.Decimal) string {
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return d.StringFixed(DisplayPlaces)
	}
	return d.String()
}
