/*

This file contains the accessors and decoders for simulation outputs. Return
values are read by position and emitted records by type; integers arrive as
little-endian u64 or u128 bytes.

*/

package simulations

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
	"github.com/holiman/uint256"
)

var ErrInvalidEncoding = errors.New("invalid integer encoding")

// ReturnValue returns return value index of operation op, or a
// MissingOutputError naming the position.
func ReturnValue(res *types.SimulationResult, debug *types.DebugInfo, op, index int) (types.ReturnValue, error) {
	missing := &types.MissingOutputError{
		Expected: fmt.Sprintf("return value %d of operation %d", index, op),
		Debug:    debug,
	}
	if res == nil || op < 0 || op >= len(res.Results) {
		return types.ReturnValue{}, missing
	}
	values := res.Results[op].ReturnValues
	if index < 0 || index >= len(values) {
		return types.ReturnValue{}, missing
	}
	return values[index], nil
}

// EventField returns field of the first event whose type ends in typeSuffix.
func EventField(res *types.SimulationResult, debug *types.DebugInfo, typeSuffix, field string) (any, error) {
	if res != nil {
		for _, ev := range res.Events {
			if !strings.HasSuffix(ev.Type, typeSuffix) {
				continue
			}
			if v, ok := ev.ParsedJSON[field]; ok {
				return v, nil
			}
		}
	}
	return nil, &types.MissingOutputError{
		Expected: fmt.Sprintf("field %q of event %s", field, typeSuffix),
		Debug:    debug,
	}
}

// EventAmount reads an integer event field, which nodes encode as a decimal string.
func EventAmount(res *types.SimulationResult, debug *types.DebugInfo, typeSuffix, field string) (sdkmath.Int, error) {
	v, err := EventField(res, debug, typeSuffix, field)
	if err != nil {
		return sdkmath.Int{}, err
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = fmt.Sprintf("%.0f", x)
	default:
		return sdkmath.Int{}, fmt.Errorf("%w: field %q has type %T", ErrInvalidEncoding, field, v)
	}
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: field %q is %q", ErrInvalidEncoding, field, s)
	}
	return amount, nil
}

// DecodeU64 decodes 8 little-endian bytes.
func DecodeU64(b []byte) (sdkmath.Int, error) {
	return decodeLE(b, 8)
}

// DecodeU128 decodes 16 little-endian bytes.
func DecodeU128(b []byte) (sdkmath.Int, error) {
	return decodeLE(b, 16)
}

func decodeLE(b []byte, width int) (sdkmath.Int, error) {
	if len(b) != width {
		return sdkmath.Int{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidEncoding, width, len(b))
	}
	be := make([]byte, width)
	for i := range b {
		be[width-1-i] = b[i]
	}
	v := new(uint256.Int).SetBytes(be)
	return sdkmath.NewIntFromBigInt(v.ToBig()), nil
}

// DecodeAmount decodes a return value according to its declared type tag.
func DecodeAmount(v types.ReturnValue) (sdkmath.Int, error) {
	switch v.Type {
	case "u64":
		return DecodeU64(v.Bytes)
	case "u128":
		return DecodeU128(v.Bytes)
	default:
		return sdkmath.Int{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidEncoding, v.Type)
	}
}

// ToDisplay renders base units as a decimal string.
func ToDisplay(raw sdkmath.Int, decimals int) (string, error) {
	d, err := utils.FromBaseUnits(raw, decimals)
	if err != nil {
		return "", err
	}
	return utils.FormatDec(d), nil
}

// FixedPointToDisplay renders a 2^64 fixed-point value as a decimal string.
func FixedPointToDisplay(raw sdkmath.Int) (string, error) {
	d, err := utils.FixedPointToDec(raw)
	if err != nil {
		return "", err
	}
	return utils.FormatDec(d), nil
}
