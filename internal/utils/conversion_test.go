package utils

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name      string
		display   string
		precision int
		want      string
		wantErr   error
	}{
		{"whole", "12", 9, "12000000000", nil},
		{"fraction", "1.25", 6, "1250000", nil},
		{"truncates extra digits", "0.1234567", 6, "123456", nil},
		{"scientific", "1e-3", 6, "1000", nil},
		{"negative", "-1", 6, "", ErrAmountNegative},
		{"bad precision", "1", 19, "", ErrInvalidPrecision},
		{"empty", "", 6, "", ErrInvalidDecimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.display, tt.precision)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromBaseUnitsAndFormat(t *testing.T) {
	d, err := FromBaseUnits(sdkmath.NewInt(1500000000), 9)
	require.NoError(t, err)
	assert.Equal(t, "1.5", FormatDec(d))

	d, err = FromBaseUnits(sdkmath.NewInt(7), 0)
	require.NoError(t, err)
	assert.Equal(t, "7", FormatDec(d))

	_, err = FromBaseUnits(sdkmath.Int{}, 9)
	require.ErrorIs(t, err, ErrAmountNil)
}

func TestFixedPointConversion(t *testing.T) {
	half := FixedPointOne.QuoRaw(2)
	d, err := FixedPointToDec(half)
	require.NoError(t, err)
	assert.Equal(t, "0.5", FormatDec(d))

	_, err = FixedPointToDec(sdkmath.Int{})
	require.ErrorIs(t, err, ErrAmountNil)
}

func TestFloatConversions(t *testing.T) {
	f, err := SDKIntToFloat64(sdkmath.NewInt(2500000), 6)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, f, 1e-12)

	i, err := Float64ToSDKInt(2.5, 6)
	require.NoError(t, err)
	assert.Equal(t, "2500000", i.String())

	_, err = Float64ToDec(math.Inf(1))
	require.ErrorIs(t, err, ErrNotFinite)

	d, err := Float64ToDec(0.25)
	require.NoError(t, err)
	assert.Equal(t, "0.25", FormatDec(d))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "0.5", FormatDec(Ratio(sdkmath.NewInt(1), sdkmath.NewInt(2))))
	assert.True(t, Ratio(sdkmath.NewInt(1), sdkmath.ZeroInt()).IsZero())
	assert.Equal(t, "1000000000", Pow10(9).String())
	assert.Equal(t, "1", Pow10(0).String())
}
