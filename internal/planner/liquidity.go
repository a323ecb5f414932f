package planner

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/adapters"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/positions"
	"github.com/elys-network/yieldsplit/internal/types"
)

// Every liquidity route reports the LP it minted in this event.
const (
	LiquidityEventSuffix  = "::market::LiquidityAddedEvent"
	LiquidityEventLpField = "lp_amount"
)

// SeedLiquidity bootstraps an empty market with amount of the deposit asset.
func SeedLiquidity(in Inputs, amount, minLpOut sdkmath.Int) (*plan.Plan, error) {
	if err := in.validate(amount); err != nil {
		return nil, err
	}
	f := newFlow(in)

	sy, err := f.mintSy(amount)
	if err != nil {
		return nil, err
	}
	price, err := f.voucher()
	if err != nil {
		return nil, err
	}
	py := f.pyPosition()

	lp := f.b.Call(f.pool.Target("market", "seed_liquidity"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", sy),
		floor("min_lp_out", minLpOut),
		plan.Move("price_voucher", price),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.yieldFactory(),
		f.marketFactory(),
		f.marketState(),
		f.clock(),
	}, plan.Output{Label: "lp_position", Ephemeral: true})[0]
	f.fresh = append(f.fresh, lp)

	return f.finish(string(RouteSeed))
}

// MintLP splits the deposit per split, mints PT/YT from one leg and supplies
// the PT with the other leg as liquidity. Unused SY is redeemed back to the
// sender.
func MintLP(in Inputs, amount sdkmath.Int, split MintLpSplit) (*plan.Plan, error) {
	if err := in.validate(amount); err != nil {
		return nil, err
	}
	if split.PtLeg.IsNil() || split.SyLeg.IsNil() || !split.PtLeg.Add(split.SyLeg).Equal(amount) {
		return nil, fmt.Errorf("%w: split does not add up to %s", ErrInvalidAmount, amount)
	}
	f := newFlow(in)

	legs, err := adapters.MintAndSplit(f.b, f.pool, f.in.Coins, split.PtLeg, split.SyLeg)
	if err != nil {
		return nil, err
	}
	syForPt := f.depositSy(legs.Coins[0])
	syForLp := f.depositSy(legs.Coins[1])
	py := f.pyPosition()

	mintPrice, err := f.voucher()
	if err != nil {
		return nil, err
	}
	f.b.Call(f.pool.Target("yield_factory", "mint_py"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", syForPt),
		plan.Move("price_voucher", mintPrice),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.yieldFactory(),
		f.clock(),
	})

	lpPrice, err := f.voucher()
	if err != nil {
		return nil, err
	}
	out := f.b.Call(f.pool.Target("market", "mint_lp"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", syForLp),
		plan.Pure("pt_amount", split.PtAmount),
		floor("min_lp_out", split.MinLpOut),
		plan.Move("price_voucher", lpPrice),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.marketState(),
		f.clock(),
	},
		plan.Output{Label: "remaining_sy", Ephemeral: true},
		plan.Output{Label: "lp_position", Ephemeral: true},
	)
	f.redeemSy(out[0])
	f.settleLp(out[1])

	return f.finish(string(RouteMintLP))
}

// AddLiquiditySingleSy deposits the whole amount as SY and lets the AMM
// balance it into liquidity.
func AddLiquiditySingleSy(in Inputs, amount, minLpOut sdkmath.Int) (*plan.Plan, error) {
	if err := in.validate(amount); err != nil {
		return nil, err
	}
	f := newFlow(in)

	sy, err := f.mintSy(amount)
	if err != nil {
		return nil, err
	}
	price, err := f.voucher()
	if err != nil {
		return nil, err
	}
	py := f.pyPosition()

	lp := f.b.Call(f.pool.Target("market", "add_liquidity_single_sy"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", sy),
		floor("min_lp_out", minLpOut),
		plan.Move("price_voucher", price),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.marketFactory(),
		f.marketState(),
		f.clock(),
	}, plan.Output{Label: "lp_position", Ephemeral: true})[0]
	f.settleLp(lp)

	return f.finish(string(RouteSingleSy))
}

// BurnLP removes lpAmount of liquidity. The PT share is credited to the
// caller's PT/YT position and the SY share is redeemed to the sender.
func BurnLP(in Inputs, lpAmount, minSyOut sdkmath.Int) (*plan.Plan, error) {
	if err := in.validate(lpAmount); err != nil {
		return nil, err
	}
	f := newFlow(in)

	lp, err := positions.Merge(f.b, f.pool, f.in.LpPositions, types.LpAmountOf, lpAmount)
	if err != nil {
		return nil, err
	}
	py := f.pyPosition()

	sy := f.b.Call(f.pool.Target("market", "burn_lp"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Pure("lp_amount", lpAmount),
		floor("min_sy_out", minSyOut),
		plan.Borrow("py_position", py),
		plan.Borrow("lp_position", lp.Position),
		f.marketState(),
		f.clock(),
	}, plan.Output{Label: "sy_coin", Ephemeral: true})[0]
	f.redeemSy(sy)

	return f.finish("burn_lp")
}

// ClaimRewards claims every active reward stream of market into the sender.
func ClaimRewards(in Inputs, market types.MarketState) (*plan.Plan, error) {
	if in.Sender == "" {
		return nil, ErrMissingSender
	}
	var active []types.RewardDescriptor
	for _, r := range market.Rewards {
		if r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, ErrNothingToClaim
	}

	f := newFlow(in)
	lp, ok := positions.MergeAll(f.b, f.pool, f.in.LpPositions, types.LpAmountOf)
	if !ok {
		return nil, errors.Join(types.ErrInsufficientPosition, errors.New("no LP position to claim rewards for"))
	}
	for _, r := range active {
		reward := f.b.Call(f.pool.Target("market", "claim_reward"), []string{f.pool.SyCoinType, r.CoinType}, []plan.Arg{
			f.version(),
			f.marketState(),
			plan.Borrow("lp_position", lp.Position),
			f.clock(),
		}, plan.Output{Label: "reward_coin", Ephemeral: true})[0]
		f.fresh = append(f.fresh, reward)
	}

	return f.finish("claim_rewards")
}
