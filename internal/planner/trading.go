package planner

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/positions"
	"github.com/elys-network/yieldsplit/internal/types"
)

// SwapExactSyForPt deposits amount and buys PT into the caller's position.
func SwapExactSyForPt(in Inputs, amount, minPtOut sdkmath.Int) (*plan.Plan, error) {
	return buyIntoPosition(in, "swap_exact_sy_for_pt", "min_pt_out", amount, minPtOut)
}

// SwapExactSyForYt deposits amount and buys YT into the caller's position.
func SwapExactSyForYt(in Inputs, amount, minYtOut sdkmath.Int) (*plan.Plan, error) {
	return buyIntoPosition(in, "swap_exact_sy_for_yt", "min_yt_out", amount, minYtOut)
}

func buyIntoPosition(in Inputs, function, floorName string, amount, minOut sdkmath.Int) (*plan.Plan, error) {
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

	f.b.Call(f.pool.Target("market", function), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", sy),
		floor(floorName, minOut),
		plan.Move("price_voucher", price),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.marketFactory(),
		f.marketState(),
		f.clock(),
	})

	return f.finish(function)
}

// SwapExactPtForSy sells ptAmount of PT and redeems the SY to the sender.
func SwapExactPtForSy(in Inputs, ptAmount, minSyOut sdkmath.Int) (*plan.Plan, error) {
	return sellFromPosition(in, "swap_exact_pt_for_sy", "pt_amount", types.PtBalanceOf, ptAmount, minSyOut)
}

// SwapExactYtForSy sells ytAmount of YT and redeems the SY to the sender.
func SwapExactYtForSy(in Inputs, ytAmount, minSyOut sdkmath.Int) (*plan.Plan, error) {
	return sellFromPosition(in, "swap_exact_yt_for_sy", "yt_amount", types.YtBalanceOf, ytAmount, minSyOut)
}

func sellFromPosition(in Inputs, function, amountName string, balance types.BalanceSelector, amount, minSyOut sdkmath.Int) (*plan.Plan, error) {
	if err := in.validate(amount); err != nil {
		return nil, err
	}
	f := newFlow(in)

	py, err := positions.Merge(f.b, f.pool, f.in.PyPositions, balance, amount)
	if err != nil {
		return nil, err
	}
	price, err := f.voucher()
	if err != nil {
		return nil, err
	}

	sy := f.b.Call(f.pool.Target("market", function), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Pure(amountName, amount),
		floor("min_sy_out", minSyOut),
		plan.Move("price_voucher", price),
		plan.Borrow("py_position", py.Position),
		f.pyState(),
		f.marketFactory(),
		f.marketState(),
		f.clock(),
	}, plan.Output{Label: "sy_coin", Ephemeral: true})[0]
	f.redeemSy(sy)

	return f.finish(function)
}

// MintPY deposits amount and mints equal PT and YT into the caller's position.
func MintPY(in Inputs, amount sdkmath.Int) (*plan.Plan, error) {
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

	f.b.Call(f.pool.Target("yield_factory", "mint_py"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", sy),
		plan.Move("price_voucher", price),
		plan.Borrow("py_position", py),
		f.pyState(),
		f.yieldFactory(),
		f.clock(),
	})

	return f.finish("mint_py")
}

// RedeemPY burns amount of PT (and, before maturity, the same amount of YT)
// for SY, redeemed to the sender. After maturity YT is not needed.
func RedeemPY(in Inputs, amount sdkmath.Int, now time.Time) (*plan.Plan, error) {
	if err := in.validate(amount); err != nil {
		return nil, err
	}
	f := newFlow(in)

	expired := f.pool.IsExpired(now)
	balance := types.PtBalanceOf
	if !expired {
		balance = pairedBalanceOf
	}
	py, err := positions.Merge(f.b, f.pool, f.in.PyPositions, balance, amount)
	if err != nil {
		return nil, err
	}
	price, err := f.voucher()
	if err != nil {
		return nil, err
	}

	var sy plan.Value
	if expired {
		sy = f.b.Call(f.pool.Target("yield_factory", "redeem_pt_after_maturity"), []string{f.pool.SyCoinType}, []plan.Arg{
			f.version(),
			plan.Pure("pt_amount", amount),
			plan.Move("price_voucher", price),
			plan.Borrow("py_position", py.Position),
			f.pyState(),
			f.yieldFactory(),
			f.clock(),
		}, plan.Output{Label: "sy_coin", Ephemeral: true})[0]
	} else {
		sy = f.b.Call(f.pool.Target("yield_factory", "redeem_py"), []string{f.pool.SyCoinType}, []plan.Arg{
			f.version(),
			plan.Pure("pt_amount", amount),
			plan.Pure("yt_amount", amount),
			plan.Move("price_voucher", price),
			plan.Borrow("py_position", py.Position),
			f.pyState(),
			f.yieldFactory(),
			f.clock(),
		}, plan.Output{Label: "sy_coin", Ephemeral: true})[0]
	}
	f.redeemSy(sy)

	return f.finish("redeem_py")
}

// pairedBalanceOf is the amount redeemable before maturity: min(PT, YT).
func pairedBalanceOf(p types.Position) sdkmath.Int {
	return sdkmath.MinInt(types.PtBalanceOf(p), types.YtBalanceOf(p))
}
