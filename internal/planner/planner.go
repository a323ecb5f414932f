package planner

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/adapters"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/oracle"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/positions"
	"github.com/elys-network/yieldsplit/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrMissingSender    = errors.New("sender is required")
	ErrInvalidPoolState = errors.New("pool state is invalid for operation")
	ErrInvalidRate      = errors.New("conversion rate must be positive")
	ErrNothingToClaim   = errors.New("no active rewards to claim")
	ErrUnknownFlow      = errors.New("unknown flow")
)

var planLogger = logger.GetForComponent("plan_builder")

// Inputs is everything a flow needs besides its amounts: the pool, who the
// outputs go to, and the caller's spendable coins and position fragments
// for this market and maturity.
type Inputs struct {
	Pool        types.PoolConfig
	Sender      string
	Coins       []types.CoinRecord
	PyPositions []types.Position
	LpPositions []types.Position
}

func (in Inputs) validate(amount sdkmath.Int) error {
	if in.Sender == "" {
		return ErrMissingSender
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	return nil
}

// floor renders an optional minimum as a pure argument; nil means no floor.
func floor(name string, min sdkmath.Int) plan.Arg {
	if min.IsNil() {
		return plan.Pure(name, sdkmath.ZeroInt())
	}
	return plan.Pure(name, min)
}

// flow wraps a builder with the pool it is building for.
type flow struct {
	b     *plan.Builder
	in    Inputs
	pool  types.PoolConfig
	fresh []plan.Value // values to hand to the sender at the end
}

func newFlow(in Inputs) *flow {
	return &flow{b: plan.NewBuilder(), in: in, pool: in.Pool}
}

func (f *flow) version() plan.Arg { return plan.Borrow("version", f.b.Object(f.pool.VersionID)) }
func (f *flow) clock() plan.Arg   { return plan.Borrow("clock", f.b.Object(f.pool.Clock())) }
func (f *flow) pyState() plan.Arg { return plan.Borrow("py_state", f.b.Object(f.pool.PyStateID)) }
func (f *flow) marketState() plan.Arg {
	return plan.Borrow("market_state", f.b.Object(f.pool.MarketStateID))
}
func (f *flow) marketFactory() plan.Arg {
	return plan.Borrow("market_factory_config", f.b.Object(f.pool.MarketFactoryConfigID))
}
func (f *flow) yieldFactory() plan.Arg {
	return plan.Borrow("yield_factory_config", f.b.Object(f.pool.YieldFactoryConfigID))
}

// mintSy converts amount of the deposit asset into SY.
func (f *flow) mintSy(amount sdkmath.Int) (plan.Value, error) {
	minted, err := adapters.Mint(f.b, f.pool, f.in.Coins, amount)
	if err != nil {
		return plan.Value{}, err
	}
	return f.depositSy(minted.Coin), nil
}

func (f *flow) depositSy(coin plan.Value) plan.Value {
	return f.b.Call(f.pool.Target("sy", "deposit"), []string{f.pool.YieldTokenType}, []plan.Arg{
		f.version(),
		plan.Move("coin", coin),
		plan.Pure("min_sy_out", sdkmath.ZeroInt()),
		plan.Borrow("sy_state", f.b.Object(f.pool.SyStateID)),
	}, plan.Output{Label: "sy_coin", Ephemeral: true})[0]
}

// redeemSy unwraps SY into the yield token and queues it for the sender.
func (f *flow) redeemSy(sy plan.Value) {
	coin := f.b.Call(f.pool.Target("sy", "redeem"), []string{f.pool.YieldTokenType}, []plan.Arg{
		f.version(),
		plan.Move("sy_coin", sy),
		plan.Pure("min_token_out", sdkmath.ZeroInt()),
		plan.Borrow("sy_state", f.b.Object(f.pool.SyStateID)),
	}, plan.Output{Label: "yield_coin", Ephemeral: true})[0]
	f.fresh = append(f.fresh, coin)
}

func (f *flow) voucher() (plan.Value, error) {
	v, err := oracle.PriceVoucher(f.b, f.pool)
	if err != nil {
		return plan.Value{}, err
	}
	return v.Value, nil
}

// pyPosition merges the caller's PT/YT fragments, or opens a fresh position
// that is transferred to the sender at the end.
func (f *flow) pyPosition() plan.Value {
	if merged, ok := positions.MergeAll(f.b, f.pool, f.in.PyPositions, types.PtBalanceOf); ok {
		return merged.Position
	}
	fresh := positions.InitPY(f.b, f.pool)
	f.fresh = append(f.fresh, fresh)
	return fresh
}

// settleLp joins a newly minted LP position into the caller's existing one,
// or hands it over when there is none.
func (f *flow) settleLp(lp plan.Value) {
	merged, ok := positions.MergeAll(f.b, f.pool, f.in.LpPositions, types.LpAmountOf)
	if !ok {
		f.fresh = append(f.fresh, lp)
		return
	}
	f.b.Call(f.pool.Target("market", "join_lp_position"), []string{f.pool.SyCoinType}, []plan.Arg{
		f.version(),
		plan.Borrow("position", merged.Position),
		plan.Move("other", lp),
	})
}

func (f *flow) finish(name string) (*plan.Plan, error) {
	f.b.TransferObjects(f.in.Sender, f.fresh...)
	p, err := f.b.Finalize()
	if err != nil {
		planLogger.Error().Err(err).Str("flow", name).Str("pool", f.pool.ID).Msg("Plan failed to finalize")
		return nil, fmt.Errorf("failed to build %s plan: %w", name, err)
	}
	planLogger.Debug().Str("flow", name).Str("pool", f.pool.ID).Int("operations", p.Len()).Msg("Built plan")
	return p, nil
}
