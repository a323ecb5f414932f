/*

This file contains the protocol adapter dispatch. Every pool names the protocol
that turns its deposit asset into the yield-bearing token the SY wrapper
accepts; the dispatcher selects that protocol's strategy, checks its inputs,
and emits the protocol's mint operations into the plan under construction.

*/

package adapters

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/coins"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
)

var adapterLogger = logger.GetForComponent("protocol_adapter")

var ErrInvalidShare = errors.New("share amount must be positive")

// MintResult is the freshly minted yield-bearing coin and the indices of the
// operations emitted to produce it.
type MintResult struct {
	Coin       plan.Value
	Operations []int
}

// SplitResult holds one coin per requested share, in request order.
type SplitResult struct {
	Coins      []plan.Value
	Operations []int
}

// Mint selects amount of the pool's deposit asset from records and converts it
// into the pool's yield-bearing token. When the deposit asset already is the
// yield token no protocol call is made.
func Mint(b *plan.Builder, pool types.PoolConfig, records []types.CoinRecord, amount sdkmath.Int) (MintResult, error) {
	if pool.IsNativeDeposit() {
		start := b.Len()
		coin, err := coins.SplitAmount(b, pool.CoinType, records, amount)
		if err != nil {
			return MintResult{}, err
		}
		return MintResult{Coin: coin, Operations: emitted(start, b.Len())}, nil
	}

	s, err := strategyFor(pool.Protocol)
	if err != nil {
		return MintResult{}, err
	}
	if !s.minimum.IsNil() && amount.LT(s.minimum) {
		return MintResult{}, &types.BelowMinimumDepositError{Protocol: pool.Protocol, Minimum: s.minimum, Amount: amount}
	}
	if pool.ProtocolPackageID == "" {
		return MintResult{}, types.MissingField(pool.ID, "protocol_package_id")
	}
	objects := make(map[string]string, len(s.objects))
	for _, name := range s.objects {
		id, err := pool.ProtocolObject(name)
		if err != nil {
			return MintResult{}, err
		}
		objects[name] = id
	}

	start := b.Len()
	deposit, err := coins.SplitAmount(b, pool.CoinType, records, amount)
	if err != nil {
		return MintResult{}, err
	}

	e := &emitter{b: b, pool: pool, objects: objects}
	minted := s.emit(e, deposit)

	adapterLogger.Debug().
		Str("pool", pool.ID).
		Str("protocol", string(pool.Protocol)).
		Str("amount", amount.String()).
		Int("operations", b.Len()-start).
		Msg("Emitted protocol mint operations")

	return MintResult{Coin: minted, Operations: emitted(start, b.Len())}, nil
}

// MintAndSplit mints the sum of shares in one pass and splits the result.
// Shares are deposit-asset amounts; every share but the last is converted to
// yield-token units with the pool's conversion rate and split off, and the
// last share receives whatever remains.
func MintAndSplit(b *plan.Builder, pool types.PoolConfig, records []types.CoinRecord, shares ...sdkmath.Int) (SplitResult, error) {
	if len(shares) == 0 {
		return SplitResult{}, fmt.Errorf("%w: no shares requested", ErrInvalidShare)
	}
	total := sdkmath.ZeroInt()
	for i, share := range shares {
		if share.IsNil() || !share.IsPositive() {
			return SplitResult{}, fmt.Errorf("%w: share %d is %s", ErrInvalidShare, i, share)
		}
		total = total.Add(share)
	}

	rate, err := ConversionRate(pool)
	if err != nil {
		return SplitResult{}, err
	}

	sized := make([]sdkmath.Int, 0, len(shares)-1)
	for i, share := range shares[:len(shares)-1] {
		units := sdkmath.LegacyNewDecFromInt(share).Quo(rate).TruncateInt()
		if !units.IsPositive() {
			return SplitResult{}, fmt.Errorf("%w: share %d rounds to zero yield-token units", ErrInvalidShare, i)
		}
		sized = append(sized, units)
	}

	minted, err := Mint(b, pool, records, total)
	if err != nil {
		return SplitResult{}, err
	}
	if len(sized) == 0 {
		return SplitResult{Coins: []plan.Value{minted.Coin}, Operations: minted.Operations}, nil
	}

	start := b.Len()
	parts := b.SplitCoins(minted.Coin, sized...)
	return SplitResult{
		Coins:      append(parts, minted.Coin),
		Operations: append(minted.Operations, emitted(start, b.Len())...),
	}, nil
}

// ConversionRate is the number of deposit-asset units per yield token.
func ConversionRate(pool types.PoolConfig) (sdkmath.LegacyDec, error) {
	if pool.IsNativeDeposit() {
		return sdkmath.LegacyOneDec(), nil
	}
	if pool.ConversionRate == "" {
		return sdkmath.LegacyDec{}, types.MissingField(pool.ID, "conversion_rate")
	}
	rate, err := utils.ParseDec(pool.ConversionRate)
	if err != nil || !rate.IsPositive() {
		return sdkmath.LegacyDec{}, &types.ConfigurationError{Pool: pool.ID, Field: "conversion_rate", Reason: "must be a positive decimal"}
	}
	return rate, nil
}

func emitted(start, end int) []int {
	ops := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		ops = append(ops, i)
	}
	return ops
}
