package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/elys-network/yieldsplit/internal/quoter"
	"github.com/elys-network/yieldsplit/internal/simulations"
	"github.com/elys-network/yieldsplit/internal/testutil"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarkets struct {
	market types.MarketState
	err    error
}

func (f fakeMarkets) MarketState(context.Context, types.PoolConfig) (types.MarketState, error) {
	return f.market, f.err
}

type fakeCoins struct{}

func (fakeCoins) Coins(_ context.Context, _ string, coinType string) ([]types.CoinRecord, error) {
	return testutil.Records(coinType, 5_000_000_000), nil
}

type fakePositions struct{}

func (fakePositions) Positions(context.Context, string, types.PoolConfig, types.PositionKind) ([]types.Position, error) {
	return nil, nil
}

type fakeRatios struct {
	mu    sync.Mutex
	value string
	calls int
}

func (f *fakeRatios) LpPerSy(context.Context, types.PoolConfig) (quoter.Ratio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return quoter.Ratio{Kind: planner.QuoteLpOutForSyIn, Value: f.value}, nil
}

// fakeSimulator rejects plans calling a target containing reject, and runs
// plans calling a target containing silent without emitting the liquidity
// event. Other plans report lpOut minted.
type fakeSimulator struct {
	reject string
	silent string
	lpOut  string
	err    error
	plans  []*plan.Plan
}

func (f *fakeSimulator) Simulate(_ context.Context, _ string, p *plan.Plan) (*types.SimulationResult, error) {
	f.plans = append(f.plans, p)
	if f.err != nil {
		return nil, f.err
	}
	for _, target := range p.Targets() {
		if f.reject != "" && strings.Contains(target, f.reject) {
			return &types.SimulationResult{Error: "MoveAbort(market, 7) in " + f.reject}, nil
		}
		if f.silent != "" && strings.Contains(target, f.silent) {
			return &types.SimulationResult{}, nil
		}
	}
	lp := f.lpOut
	if lp == "" {
		lp = "181000"
	}
	return &types.SimulationResult{Events: []types.Event{{
		Type:       "0xpy::market::LiquidityAddedEvent",
		ParsedJSON: map[string]any{"lp_amount": lp},
	}}}, nil
}

func newCalculator(market types.MarketState, sim *fakeSimulator, ratios *fakeRatios) *Calculator {
	return NewCalculator(Sources{
		Markets:   fakeMarkets{market: market},
		Coins:     fakeCoins{},
		Positions: fakePositions{},
		Ratios:    ratios,
		Simulator: sim,
	})
}

func request(pool types.PoolConfig, amount int64) LiquidityRequest {
	return LiquidityRequest{Pool: pool, Sender: testutil.Owner, Amount: sdkmath.NewInt(amount)}
}

func TestAddLiquiditySeedsEmptyMarket(t *testing.T) {
	sim := &fakeSimulator{}
	ratios := &fakeRatios{value: "2"}
	c := newCalculator(testutil.Market(0, 0, 0), sim, ratios)

	quote, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 1_000))
	require.NoError(t, err)
	assert.Equal(t, planner.RouteSeed, quote.Route)
	assert.False(t, quote.FellBack)
	assert.GreaterOrEqual(t, quote.Plan.IndexOf("0xpy::market::seed_liquidity"), 0)
	assert.Len(t, sim.plans, 1)
	assert.Zero(t, ratios.calls)
	require.NotNil(t, quote.Debug)
	assert.Same(t, quote.Plan, quote.Debug.Plan)
}

func TestSeedBelowMinimumIsRejectedBeforeSimulation(t *testing.T) {
	sim := &fakeSimulator{}
	c := newCalculator(testutil.Market(0, 0, 0), sim, &fakeRatios{})

	_, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolAftermath), 400_000_000))
	require.ErrorIs(t, err, types.ErrBelowMinimumDeposit)
	var below *types.BelowMinimumDepositError
	require.ErrorAs(t, err, &below)
	assert.Equal(t, "600000000", below.TopUp().String())
	assert.Empty(t, sim.plans)
}

func TestAddLiquiditySingleSided(t *testing.T) {
	sim := &fakeSimulator{}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	quote, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.NoError(t, err)
	assert.Equal(t, planner.RouteSingleSy, quote.Route)
	assert.False(t, quote.FellBack)
	assert.Nil(t, quote.Split)
	// 100000 / 1.1 * 2 = 181818, less 50 bps
	assert.Equal(t, "180908", quote.MinLpOut.String())
	assert.GreaterOrEqual(t, quote.Plan.IndexOf("0xpy::market::add_liquidity_single_sy"), 0)
}

func TestAddLiquidityFallsBackToMintLP(t *testing.T) {
	sim := &fakeSimulator{reject: "add_liquidity_single_sy"}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	quote, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.NoError(t, err)
	assert.Equal(t, planner.RouteMintLP, quote.Route)
	assert.True(t, quote.FellBack)
	assert.Contains(t, quote.FallbackReason, "MoveAbort")
	require.NotNil(t, quote.Split)
	assert.Equal(t, "47619", quote.Split.PtLeg.String())
	assert.Equal(t, "52381", quote.Split.SyLeg.String())
	assert.Equal(t, "180908", quote.MinLpOut.String())
	assert.Len(t, sim.plans, 2)
	assert.GreaterOrEqual(t, quote.Plan.IndexOf("0xpy::market::mint_lp"), 0)
}

func TestAddLiquidityDecodesSimulatedLp(t *testing.T) {
	sim := &fakeSimulator{lpOut: "181000"}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	quote, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.NoError(t, err)
	assert.Equal(t, "181000", quote.LpOut.String())
	assert.Equal(t, "0.000181", quote.ExpectedLp)
	require.NotNil(t, quote.Debug)
	assert.Equal(t, "0.000181", quote.Debug.DecodedOutput)
}

func TestAddLiquidityFallsBackWhenLpIsNotReported(t *testing.T) {
	sim := &fakeSimulator{silent: "add_liquidity_single_sy"}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	quote, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.NoError(t, err)
	assert.Equal(t, planner.RouteMintLP, quote.Route)
	assert.True(t, quote.FellBack)
	assert.Contains(t, quote.FallbackReason, "lp_amount")
	assert.Equal(t, "181000", quote.LpOut.String())
	assert.Len(t, sim.plans, 2)

	req := request(testutil.Pool(types.ProtocolHaedal), 100_000)
	req.DisableFallback = true
	_, err = c.AddLiquidity(context.Background(), req)
	require.ErrorIs(t, err, types.ErrMissingOutput)
	debug := simulations.DebugOf(err)
	require.NotNil(t, debug)
	assert.GreaterOrEqual(t, debug.Plan.IndexOf("0xpy::market::add_liquidity_single_sy"), 0)
}

func TestAddLiquiditySimulationFailureCarriesDebug(t *testing.T) {
	sim := &fakeSimulator{err: errors.Join(simulations.ErrSimulationFailed, errors.New("connection reset"))}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	_, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.ErrorIs(t, err, simulations.ErrSimulationFailed)
	assert.Contains(t, err.Error(), "connection reset")
	// single sided failed, then the mint-LP fallback failed too
	assert.Len(t, sim.plans, 2)

	var simErr *simulations.SimulationError
	require.ErrorAs(t, err, &simErr)
	require.NotNil(t, simErr.Debug)
	assert.Equal(t, testutil.Owner, simErr.Debug.Sender)
	assert.GreaterOrEqual(t, simErr.Debug.Plan.IndexOf("0xpy::market::mint_lp"), 0)

	_, err = c.Plan(context.Background(), planner.FlowMintPY, PlanRequest{
		Pool:     testutil.Pool(types.ProtocolHaedal),
		Sender:   testutil.Owner,
		Amount:   sdkmath.NewInt(1_000),
		Simulate: true,
	})
	require.ErrorIs(t, err, simulations.ErrSimulationFailed)
	assert.NotNil(t, simulations.DebugOf(err))
}

func TestAddLiquidityRespectsMarketCap(t *testing.T) {
	sim := &fakeSimulator{}
	market := testutil.Market(1_000_000, 1_000_000, 1_000_000)
	market.MarketCap = sdkmath.NewInt(1_050_000)
	c := newCalculator(market, sim, &fakeRatios{value: "2"})

	// 100000 / 1.1 = 90909 SY, only 50000 fit
	_, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100_000))
	require.ErrorIs(t, err, types.ErrMarketCapExceeded)
	var capErr *types.MarketCapExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "50000", capErr.Available().String())
	assert.Empty(t, sim.plans)

	_, err = c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 50_000))
	require.NoError(t, err)
}

func TestAddLiquidityFallbackCanBeDisabled(t *testing.T) {
	sim := &fakeSimulator{reject: "add_liquidity_single_sy"}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{value: "2"})

	req := request(testutil.Pool(types.ProtocolHaedal), 100_000)
	req.DisableFallback = true
	_, err := c.AddLiquidity(context.Background(), req)
	require.ErrorIs(t, err, types.ErrContractError)
	assert.Len(t, sim.plans, 1)
}

func TestAddLiquidityLargeDepositMintsLP(t *testing.T) {
	sim := &fakeSimulator{}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{})

	req := request(testutil.Pool(types.ProtocolHaedal), 500_000)
	req.MinLpOut = sdkmath.NewInt(1)
	quote, err := c.AddLiquidity(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, planner.RouteMintLP, quote.Route)
	assert.False(t, quote.FellBack)
	assert.Equal(t, "1", quote.MinLpOut.String())
	assert.Equal(t, "1", quote.Split.MinLpOut.String())
}

func TestAddLiquidityErrors(t *testing.T) {
	boom := errors.New("node down")
	c := NewCalculator(Sources{
		Markets:   fakeMarkets{err: boom},
		Coins:     fakeCoins{},
		Positions: fakePositions{},
		Simulator: &fakeSimulator{},
	})
	_, err := c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100))
	require.ErrorIs(t, err, boom)

	_, err = c.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 0))
	require.ErrorIs(t, err, planner.ErrInvalidAmount)

	noSim := NewCalculator(Sources{Markets: fakeMarkets{}, Coins: fakeCoins{}, Positions: fakePositions{}})
	_, err = noSim.AddLiquidity(context.Background(), request(testutil.Pool(types.ProtocolHaedal), 100))
	require.ErrorIs(t, err, ErrNoSimulator)
}

func TestPlanBuildsNamedFlow(t *testing.T) {
	sim := &fakeSimulator{}
	c := newCalculator(testutil.Market(1_000_000, 1_000_000, 1_000_000), sim, &fakeRatios{})
	req := PlanRequest{Pool: testutil.Pool(types.ProtocolHaedal), Sender: testutil.Owner, Amount: sdkmath.NewInt(1_000)}

	result, err := c.Plan(context.Background(), planner.FlowMintPY, req)
	require.NoError(t, err)
	assert.Equal(t, planner.FlowMintPY, result.Flow)
	assert.Nil(t, result.Debug)
	assert.Empty(t, sim.plans)
	assert.Empty(t, result.Plan.Unconsumed())

	req.Simulate = true
	result, err = c.Plan(context.Background(), planner.FlowMintPY, req)
	require.NoError(t, err)
	require.NotNil(t, result.Debug)
	assert.Len(t, sim.plans, 1)

	_, err = c.Plan(context.Background(), planner.Flow("teleport"), req)
	require.ErrorIs(t, err, planner.ErrUnknownFlow)
}

func TestLatestDiscardsSupersededResults(t *testing.T) {
	g := NewGenerations()

	v, err := Latest(g, "amount-input", func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// a newer input arrives while the first calculation is in flight
	v, err = Latest(g, "amount-input", func() (int, error) {
		g.Next("amount-input")
		return 2, nil
	})
	require.ErrorIs(t, err, ErrStaleRequest)
	assert.Zero(t, v)

	// other streams are independent
	gen := g.Next("other")
	assert.True(t, g.IsLatest("other", gen))
	assert.NoError(t, g.Check("other", gen))
	g.Next("other")
	assert.ErrorIs(t, g.Check("other", gen), ErrStaleRequest)

	g.Forget("other")
	assert.Equal(t, uint64(1), g.Next("other"))
}
