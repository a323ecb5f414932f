/*
This file contains common utility functions for converting between base-unit
integers, display decimals and floats, with precision handling.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
	ErrInvalidDecimal   = errors.New("invalid decimal string")
)

// MaxPrecision is the largest number of token decimals supported.
const MaxPrecision = 18

// decPrecision is the number of fractional digits of a LegacyDec.
const decPrecision int32 = 18

// Pow10 returns 10^exp as an Int.
func Pow10(exp int) sdkmath.Int {
	if exp <= 0 {
		return sdkmath.OneInt()
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
}

func checkPrecision(precision int) error {
	if precision < 0 || precision > MaxPrecision {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	return nil
}

// ParseDec parses a decimal string. Scientific notation is accepted since
// price feeds emit it for very small values.
func ParseDec(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: empty string", ErrInvalidDecimal)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q: %w", ErrInvalidDecimal, s, err)
	}
	dec, err := sdkmath.LegacyNewDecFromStr(d.StringFixed(decPrecision))
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q: %w", ErrInvalidDecimal, s, err)
	}
	return dec, nil
}

// ParseDecOrZero parses s, returning zero for an empty or invalid string.
func ParseDecOrZero(s string) sdkmath.LegacyDec {
	d, err := ParseDec(s)
	if err != nil {
		return sdkmath.LegacyZeroDec()
	}
	return d
}

// FormatDec renders a decimal without trailing zeros ("1.500000000000000000" -> "1.5").
func FormatDec(d sdkmath.LegacyDec) string {
	if d.IsNil() {
		return "0"
	}
	return decimal.RequireFromString(d.String()).String()
}

// ToBaseUnits converts a display amount ("1.25") into base units for the given precision.
// Digits beyond the precision are truncated.
func ToBaseUnits(display string, precision int) (sdkmath.Int, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.ZeroInt(), err
	}
	d, err := ParseDec(display)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if d.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return d.MulInt(Pow10(precision)).TruncateInt(), nil
}

// FromBaseUnits converts base units into a display decimal.
func FromBaseUnits(amount sdkmath.Int, precision int) (sdkmath.LegacyDec, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.LegacyZeroDec(), err
	}
	if amount.IsNil() {
		return sdkmath.LegacyZeroDec(), ErrAmountNil
	}
	return sdkmath.LegacyNewDecFromInt(amount).QuoInt(Pow10(precision)), nil
}

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}
	result, err := FromBaseUnits(amount, precision)
	if err != nil {
		return 0, err
	}
	return DecToFloat64(result)
}

// DecToFloat64 converts a decimal to a finite float64.
func DecToFloat64(d sdkmath.LegacyDec) (float64, error) {
	if d.IsNil() {
		return 0, ErrAmountNil
	}
	f, err := d.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, f)
	}
	return f, nil
}

// Float64ToDec converts a finite float64 to a decimal with 18 fractional digits.
func Float64ToDec(f float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: value is %f", ErrNotFinite, f)
	}
	return sdkmath.LegacyNewDecFromStr(decimal.NewFromFloat(f).StringFixed(decPrecision))
}

// Float64ToSDKInt converts a float64 to SDK Int with proper precision handling
func Float64ToSDKInt(amount float64, precision int) (sdkmath.Int, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}

	// Use string conversion to avoid floating point precision issues
	formatStr := fmt.Sprintf("%%.%df", precision)
	return ToBaseUnits(fmt.Sprintf(formatStr, amount), precision)
}

// FormatFloat renders a float as its shortest decimal string; non-finite values render as "0".
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return decimal.NewFromFloat(f).String()
}

// ParseFloatOrZero parses a decimal string into a float64, returning zero when invalid.
func ParseFloatOrZero(s string) float64 {
	f, err := DecToFloat64(ParseDecOrZero(s))
	if err != nil {
		return 0
	}
	return f
}
