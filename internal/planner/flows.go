package planner

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

// Flow names a write-path plan that can be requested by name.
type Flow string

const (
	FlowSeedLiquidity    Flow = "seed-liquidity"
	FlowAddLiquidity     Flow = "add-liquidity-single-sy"
	FlowSwapExactSyForPt Flow = "swap-sy-for-pt"
	FlowSwapExactPtForSy Flow = "swap-pt-for-sy"
	FlowSwapExactSyForYt Flow = "swap-sy-for-yt"
	FlowSwapExactYtForSy Flow = "swap-yt-for-sy"
	FlowMintPY           Flow = "mint-py"
	FlowRedeemPY         Flow = "redeem-py"
	FlowBurnLP           Flow = "burn-lp"
	FlowClaimRewards     Flow = "claim-rewards"
)

// FlowRequest carries the amounts of a named flow. MinOut is the slippage
// floor of the flow's main output; nil means no floor.
type FlowRequest struct {
	Amount sdkmath.Int
	MinOut sdkmath.Int
	Now    time.Time
	Market types.MarketState // needed by claim-rewards
}

// Build dispatches a named flow. Mint-LP is not addressable here since it
// needs a split estimate; callers go through the liquidity calculation.
func Build(flow Flow, in Inputs, req FlowRequest) (*plan.Plan, error) {
	switch flow {
	case FlowSeedLiquidity:
		return SeedLiquidity(in, req.Amount, req.MinOut)
	case FlowAddLiquidity:
		return AddLiquiditySingleSy(in, req.Amount, req.MinOut)
	case FlowSwapExactSyForPt:
		return SwapExactSyForPt(in, req.Amount, req.MinOut)
	case FlowSwapExactPtForSy:
		return SwapExactPtForSy(in, req.Amount, req.MinOut)
	case FlowSwapExactSyForYt:
		return SwapExactSyForYt(in, req.Amount, req.MinOut)
	case FlowSwapExactYtForSy:
		return SwapExactYtForSy(in, req.Amount, req.MinOut)
	case FlowMintPY:
		return MintPY(in, req.Amount)
	case FlowRedeemPY:
		now := req.Now
		if now.IsZero() {
			now = time.Now()
		}
		return RedeemPY(in, req.Amount, now)
	case FlowBurnLP:
		return BurnLP(in, req.Amount, req.MinOut)
	case FlowClaimRewards:
		return ClaimRewards(in, req.Market)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}
}
