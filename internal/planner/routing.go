/*

This file contains the liquidity routing decision and the split estimate used
by the mint-LP route.

*/

package planner

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/types"
)

// Route is one way of adding liquidity.
type Route string

const (
	RouteSeed     Route = "seed_liquidity"
	RouteMintLP   Route = "mint_lp"
	RouteSingleSy Route = "add_liquidity_single_sy"
)

// SelectRoute picks how liquidity is added: seed an empty market, mint LP for
// deposits above the threshold share of the SY reserve, otherwise add single
// sided. It depends only on its arguments.
func SelectRoute(market types.MarketState, amount sdkmath.Int) Route {
	if market.IsEmpty() {
		return RouteSeed
	}
	totalSy := market.TotalSy
	if totalSy.IsNil() {
		totalSy = sdkmath.ZeroInt()
	}
	if !amount.IsNil() && amount.MulRaw(100).GT(totalSy.Mul(config.MintLpThresholdPercent)) {
		return RouteMintLP
	}
	return RouteSingleSy
}

// CheckMarketCap fails when adding syAmount would take the SY reserve above
// the market cap. A zero or absent cap means uncapped.
func CheckMarketCap(market types.MarketState, syAmount sdkmath.Int) error {
	if market.MarketCap.IsNil() || !market.MarketCap.IsPositive() || syAmount.IsNil() {
		return nil
	}
	totalSy := market.TotalSy
	if totalSy.IsNil() {
		totalSy = sdkmath.ZeroInt()
	}
	if totalSy.Add(syAmount).GT(market.MarketCap) {
		return &types.MarketCapExceededError{Cap: market.MarketCap, TotalSy: totalSy, Requested: syAmount}
	}
	return nil
}

// MintLpSplit partitions a deposit between the leg minted into PT/YT and the
// leg paired with that PT as SY.
type MintLpSplit struct {
	PtLeg      sdkmath.Int // deposit units minted into PT/YT
	SyLeg      sdkmath.Int // deposit units supplied as SY
	PtAmount   sdkmath.Int // PT paired with the SY leg
	ExpectedLp sdkmath.Int // zero when no LP/SY ratio was available
	MinLpOut   sdkmath.Int
}

// EstimateMintLpSplit sizes the PT leg so the pair matches the reserve ratio:
//
//	ptLeg = amount * totalPt / (rate * totalSy + totalPt)
//
// where rate is deposit units per SY. lpPerSy, when known, gives the expected
// LP and the slippage-adjusted floor.
func EstimateMintLpSplit(market types.MarketState, amount sdkmath.Int, rate, lpPerSy sdkmath.LegacyDec, slippageBps int64) (MintLpSplit, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return MintLpSplit{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if rate.IsNil() || !rate.IsPositive() {
		return MintLpSplit{}, ErrInvalidRate
	}
	if market.TotalSy.IsNil() || market.TotalPt.IsNil() || !market.TotalPt.IsPositive() {
		return MintLpSplit{}, fmt.Errorf("%w: market has no PT reserve", ErrInvalidPoolState)
	}

	totalPt := sdkmath.LegacyNewDecFromInt(market.TotalPt)
	denominator := rate.MulInt(market.TotalSy).Add(totalPt)
	ptLeg := sdkmath.LegacyNewDecFromInt(amount).Mul(totalPt).Quo(denominator).TruncateInt()
	syLeg := amount.Sub(ptLeg)
	if !ptLeg.IsPositive() || !syLeg.IsPositive() {
		return MintLpSplit{}, fmt.Errorf("%w: split of %s leaves an empty leg", ErrInvalidPoolState, amount)
	}

	split := MintLpSplit{
		PtLeg:      ptLeg,
		SyLeg:      syLeg,
		PtAmount:   sdkmath.LegacyNewDecFromInt(ptLeg).Quo(rate).TruncateInt(),
		ExpectedLp: sdkmath.ZeroInt(),
		MinLpOut:   sdkmath.ZeroInt(),
	}
	if !lpPerSy.IsNil() && lpPerSy.IsPositive() {
		split.ExpectedLp = sdkmath.LegacyNewDecFromInt(amount).Quo(rate).Mul(lpPerSy).TruncateInt()
		split.MinLpOut = ApplySlippage(split.ExpectedLp, slippageBps)
	}
	return split, nil
}

// ApplySlippage lowers amount by bps basis points.
func ApplySlippage(amount sdkmath.Int, bps int64) sdkmath.Int {
	if amount.IsNil() {
		return sdkmath.ZeroInt()
	}
	if bps <= 0 {
		return amount
	}
	if bps >= 10_000 {
		return sdkmath.ZeroInt()
	}
	return amount.MulRaw(10_000 - bps).QuoRaw(10_000)
}
