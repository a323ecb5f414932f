package utils

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// FixedPointOne is 2^64, the scale of oracle fixed-point values.
var FixedPointOne = sdkmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))

// FixedPointToDec converts a 64.64 fixed-point value into a decimal.
func FixedPointToDec(raw sdkmath.Int) (sdkmath.LegacyDec, error) {
	if raw.IsNil() {
		return sdkmath.LegacyZeroDec(), ErrAmountNil
	}
	return sdkmath.LegacyNewDecFromInt(raw).QuoInt(FixedPointOne), nil
}

// Ratio returns numerator/denominator as a decimal, or zero when the denominator is zero.
func Ratio(numerator, denominator sdkmath.Int) sdkmath.LegacyDec {
	if numerator.IsNil() || denominator.IsNil() || denominator.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	return sdkmath.LegacyNewDecFromInt(numerator).QuoInt(denominator)
}
