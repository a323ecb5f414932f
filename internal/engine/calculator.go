/*

This file contains the caller-facing calculation flows. A calculation gathers
what the plan builder needs (reserves, spendable coins, position fragments),
builds the plan and previews it by simulation under the caller's address.

Adding liquidity routes between seeding, single-sided add and mint-LP. A
single-sided add whose simulation fails, or succeeds without reporting the
LP it minted, is retried as mint-LP unless the request disables it. The quote
reports the route taken, whether it fell back and the simulated LP amount.

*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/adapters"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/observability"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/elys-network/yieldsplit/internal/quoter"
	"github.com/elys-network/yieldsplit/internal/simulations"
	"github.com/elys-network/yieldsplit/internal/types"
	"golang.org/x/sync/errgroup"
)

var calcLogger = logger.GetForComponent("calculator")

var ErrNoSimulator = errors.New("no simulator configured")

// MarketReader reads a pool's reserves.
type MarketReader interface {
	MarketState(ctx context.Context, pool types.PoolConfig) (types.MarketState, error)
}

// CoinReader lists an owner's coins of one type.
type CoinReader interface {
	Coins(ctx context.Context, owner, coinType string) ([]types.CoinRecord, error)
}

// PositionReader lists an owner's positions of one kind in a pool.
type PositionReader interface {
	Positions(ctx context.Context, owner string, pool types.PoolConfig, kind types.PositionKind) ([]types.Position, error)
}

// LpRatioReader measures the LP minted per SY.
type LpRatioReader interface {
	LpPerSy(ctx context.Context, pool types.PoolConfig) (quoter.Ratio, error)
}

// Sources bundles the collaborators a Calculator reads from.
type Sources struct {
	Markets   MarketReader
	Coins     CoinReader
	Positions PositionReader
	Ratios    LpRatioReader
	Simulator simulations.Simulator
}

// Calculator runs the caller-facing flows.
type Calculator struct {
	src         Sources
	slippageBps int64
	now         func() time.Time
	metrics     *observability.EngineMetrics
}

// NewCalculator returns a calculator applying the configured default slippage.
func NewCalculator(src Sources) *Calculator {
	return &Calculator{
		src:         src,
		slippageBps: config.DefaultSlippageBps,
		now:         time.Now,
		metrics:     observability.Engine(),
	}
}

// LiquidityRequest asks to add Amount (deposit-asset base units) to Pool.
type LiquidityRequest struct {
	Pool            types.PoolConfig
	Sender          string
	Amount          sdkmath.Int
	MinLpOut        sdkmath.Int // optional floor; estimated from the LP/SY ratio when nil
	SlippageBps     int64       // zero uses the default
	DisableFallback bool
}

// LiquidityQuote is the plan chosen for a liquidity request and its preview.
type LiquidityQuote struct {
	Route          planner.Route        `json:"route"`
	FellBack       bool                 `json:"fell_back"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
	Plan           *plan.Plan           `json:"plan"`
	Split          *planner.MintLpSplit `json:"split,omitempty"`
	MinLpOut       sdkmath.Int          `json:"min_lp_out"`
	LpOut          sdkmath.Int          `json:"lp_out"`      // simulated, base units
	ExpectedLp     string               `json:"expected_lp"` // LpOut in display units
	Debug          *types.DebugInfo     `json:"debug,omitempty"`
}

type gathered struct {
	market types.MarketState
	inputs planner.Inputs
}

// gather fetches reserves, coins and both kinds of positions concurrently.
func (c *Calculator) gather(ctx context.Context, pool types.PoolConfig, sender string) (gathered, error) {
	out := gathered{inputs: planner.Inputs{Pool: pool, Sender: sender}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := c.src.Markets.MarketState(gctx, pool)
		if err != nil {
			return fmt.Errorf("market state: %w", err)
		}
		out.market = m
		return nil
	})
	g.Go(func() error {
		records, err := c.src.Coins.Coins(gctx, sender, pool.CoinType)
		if err != nil {
			return fmt.Errorf("coins: %w", err)
		}
		out.inputs.Coins = records
		return nil
	})
	g.Go(func() error {
		py, err := c.src.Positions.Positions(gctx, sender, pool, types.PositionPY)
		if err != nil {
			return fmt.Errorf("py positions: %w", err)
		}
		out.inputs.PyPositions = py
		return nil
	})
	g.Go(func() error {
		lp, err := c.src.Positions.Positions(gctx, sender, pool, types.PositionLP)
		if err != nil {
			return fmt.Errorf("lp positions: %w", err)
		}
		out.inputs.LpPositions = lp
		return nil
	})
	if err := g.Wait(); err != nil {
		return gathered{}, err
	}
	return out, nil
}

// AddLiquidity selects a route for req, builds its plan and previews it.
func (c *Calculator) AddLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityQuote, error) {
	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", planner.ErrInvalidAmount, req.Amount)
	}
	if c.src.Simulator == nil {
		return nil, ErrNoSimulator
	}
	state, err := c.gather(ctx, req.Pool, req.Sender)
	if err != nil {
		return nil, err
	}

	route := planner.SelectRoute(state.market, req.Amount)
	calcLogger.Debug().
		Str("pool", req.Pool.ID).
		Str("amount", req.Amount.String()).
		Str("route", string(route)).
		Msg("Selected liquidity route")

	if err := c.checkMarketCap(req, state.market); err != nil {
		return nil, err
	}

	var quote *LiquidityQuote
	switch route {
	case planner.RouteSeed:
		quote, err = c.seed(ctx, req, state)
	case planner.RouteSingleSy:
		quote, err = c.singleSy(ctx, req, state)
		if err != nil && !req.DisableFallback && fallbackAllowed(ctx, err) {
			calcLogger.Warn().
				Err(err).
				Str("pool", req.Pool.ID).
				Msg("Single-sided add failed in simulation, falling back to mint LP")
			reason := err.Error()
			quote, err = c.mintLP(ctx, req, state)
			if quote != nil {
				quote.FellBack = true
				quote.FallbackReason = reason
			}
		}
	default:
		quote, err = c.mintLP(ctx, req, state)
	}
	if err != nil {
		return nil, err
	}

	c.metrics.ObserveRoute(string(quote.Route), quote.FellBack)
	return quote, nil
}

// fallbackAllowed reports whether err came from the single-sided simulation
// rather than from cancellation or a plan that could not be built.
func fallbackAllowed(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, types.ErrContractError) || errors.Is(err, simulations.ErrSimulationFailed) ||
		errors.Is(err, types.ErrMissingOutput) || errors.Is(err, simulations.ErrInvalidEncoding)
}

// checkMarketCap rejects deposits that would overflow a capped market.
func (c *Calculator) checkMarketCap(req LiquidityRequest, market types.MarketState) error {
	if market.MarketCap.IsNil() || !market.MarketCap.IsPositive() {
		return nil
	}
	rate, err := adapters.ConversionRate(req.Pool)
	if err != nil {
		return err
	}
	sy := sdkmath.LegacyNewDecFromInt(req.Amount).Quo(rate).TruncateInt()
	return planner.CheckMarketCap(market, sy)
}

func (c *Calculator) seed(ctx context.Context, req LiquidityRequest, state gathered) (*LiquidityQuote, error) {
	p, err := planner.SeedLiquidity(state.inputs, req.Amount, req.MinLpOut)
	if err != nil {
		return nil, err
	}
	return c.preview(ctx, req, planner.RouteSeed, p, orZero(req.MinLpOut))
}

func (c *Calculator) singleSy(ctx context.Context, req LiquidityRequest, state gathered) (*LiquidityQuote, error) {
	rate, err := adapters.ConversionRate(req.Pool)
	if err != nil {
		return nil, err
	}
	minLp := req.MinLpOut
	if minLp.IsNil() {
		minLp, err = c.estimateMinLp(ctx, req, rate)
		if err != nil {
			return nil, err
		}
	}
	p, err := planner.AddLiquiditySingleSy(state.inputs, req.Amount, minLp)
	if err != nil {
		return nil, err
	}
	return c.preview(ctx, req, planner.RouteSingleSy, p, minLp)
}

func (c *Calculator) mintLP(ctx context.Context, req LiquidityRequest, state gathered) (*LiquidityQuote, error) {
	rate, err := adapters.ConversionRate(req.Pool)
	if err != nil {
		return nil, err
	}
	lpPerSy, err := c.lpPerSy(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	split, err := planner.EstimateMintLpSplit(state.market, req.Amount, rate, lpPerSy, c.slippage(req))
	if err != nil {
		return nil, err
	}
	if !req.MinLpOut.IsNil() {
		split.MinLpOut = req.MinLpOut
	}
	p, err := planner.MintLP(state.inputs, req.Amount, split)
	if err != nil {
		return nil, err
	}
	quote, err := c.preview(ctx, req, planner.RouteMintLP, p, split.MinLpOut)
	if err != nil {
		return nil, err
	}
	quote.Split = &split
	return quote, nil
}

// estimateMinLp derives the single-sided floor from the LP/SY ratio; an
// unresolved ratio leaves no floor.
func (c *Calculator) estimateMinLp(ctx context.Context, req LiquidityRequest, rate sdkmath.LegacyDec) (sdkmath.Int, error) {
	lpPerSy, err := c.lpPerSy(ctx, req.Pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !lpPerSy.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	expected := sdkmath.LegacyNewDecFromInt(req.Amount).Quo(rate).Mul(lpPerSy).TruncateInt()
	return planner.ApplySlippage(expected, c.slippage(req)), nil
}

func (c *Calculator) lpPerSy(ctx context.Context, pool types.PoolConfig) (sdkmath.LegacyDec, error) {
	if c.src.Ratios == nil {
		return sdkmath.LegacyZeroDec(), nil
	}
	ratio, err := c.src.Ratios.LpPerSy(ctx, pool)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return ratio.Dec(), nil
}

func (c *Calculator) slippage(req LiquidityRequest) int64 {
	if req.SlippageBps > 0 {
		return req.SlippageBps
	}
	return c.slippageBps
}

// preview simulates p and reads the LP it minted from the liquidity event.
func (c *Calculator) preview(ctx context.Context, req LiquidityRequest, route planner.Route, p *plan.Plan, minLp sdkmath.Int) (*LiquidityQuote, error) {
	res, debug, err := simulations.Run(ctx, c.src.Simulator, req.Sender, p)
	if err != nil {
		return nil, err
	}
	lp, err := simulations.EventAmount(res, debug, planner.LiquidityEventSuffix, planner.LiquidityEventLpField)
	if err != nil {
		return nil, err
	}
	expected, err := simulations.ToDisplay(lp, req.Pool.Decimals)
	if err != nil {
		return nil, err
	}
	debug.DecodedOutput = expected

	return &LiquidityQuote{
		Route:      route,
		Plan:       p,
		MinLpOut:   minLp,
		LpOut:      lp,
		ExpectedLp: expected,
		Debug:      debug,
	}, nil
}

// PlanRequest asks for a named write-path flow.
type PlanRequest struct {
	Pool     types.PoolConfig
	Sender   string
	Amount   sdkmath.Int
	MinOut   sdkmath.Int
	Simulate bool
}

// PlanResult is a built plan and, when requested, its preview.
type PlanResult struct {
	Flow  planner.Flow     `json:"flow"`
	Plan  *plan.Plan       `json:"plan"`
	Debug *types.DebugInfo `json:"debug,omitempty"`
}

// Plan builds the named flow for req.
func (c *Calculator) Plan(ctx context.Context, flow planner.Flow, req PlanRequest) (*PlanResult, error) {
	state, err := c.gather(ctx, req.Pool, req.Sender)
	if err != nil {
		return nil, err
	}
	p, err := planner.Build(flow, state.inputs, planner.FlowRequest{
		Amount: req.Amount,
		MinOut: req.MinOut,
		Now:    c.now(),
		Market: state.market,
	})
	if err != nil {
		return nil, err
	}

	result := &PlanResult{Flow: flow, Plan: p}
	if !req.Simulate {
		return result, nil
	}
	if c.src.Simulator == nil {
		return nil, ErrNoSimulator
	}
	_, debug, err := simulations.Run(ctx, c.src.Simulator, req.Sender, p)
	if err != nil {
		return nil, err
	}
	result.Debug = debug
	return result, nil
}

func orZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}
