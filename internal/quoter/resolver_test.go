package quoter

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/elys-network/yieldsplit/internal/testutil"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSimulator succeeds for probes no larger than maxProbe and returns
// probe*num/den.
type fakeSimulator struct {
	mu       sync.Mutex
	maxProbe uint64
	num, den uint64
	probes   []uint64
	failWith error
}

func (f *fakeSimulator) Simulate(_ context.Context, _ string, p *plan.Plan) (*types.SimulationResult, error) {
	quote := p.Operations[len(p.Operations)-1]
	probe, ok := sdkmath.NewIntFromString(quote.Arguments[0].Value.(string))
	if !ok {
		return nil, errors.New("bad probe")
	}

	f.mu.Lock()
	f.probes = append(f.probes, probe.Uint64())
	f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}
	if probe.Uint64() > f.maxProbe {
		return &types.SimulationResult{Error: "MoveAbort: insufficient liquidity"}, nil
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, probe.Uint64()*f.num/f.den)
	return &types.SimulationResult{Results: []types.OperationResult{
		{},
		{ReturnValues: []types.ReturnValue{{Bytes: out, Type: "u64"}}},
	}}, nil
}

func pool(decimals int) types.PoolConfig {
	p := testutil.Pool(types.ProtocolHaedal)
	p.Decimals = decimals
	return p
}

func TestRatioBacksOffAndCachesPower(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 1, num: 2, den: 1}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)
	p := pool(3)

	ratio, err := r.PtPerSy(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 100, 10, 1}, sim.probes)
	assert.Equal(t, "2", ratio.Value)
	assert.Equal(t, 3, ratio.Power)
	assert.Equal(t, 4, ratio.Attempts)
	require.NotNil(t, ratio.Debug)
	assert.Equal(t, "2", ratio.Debug.DecodedOutput)

	power, ok := r.CachedPower(p, planner.QuotePtOutForSyIn)
	require.True(t, ok)
	assert.Equal(t, 3, power)

	// next call starts from the cached power
	sim.probes = nil
	_, err = r.PtPerSy(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, sim.probes)
}

func TestRatioExhaustionReturnsEmpty(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 0, num: 1, den: 1}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	for _, decimals := range []int{0, 3, 9} {
		sim.probes = nil
		ratio, err := r.LpPerSy(context.Background(), pool(decimals))
		require.NoError(t, err)
		assert.False(t, ratio.Resolved())
		assert.Empty(t, ratio.Value)
		assert.Len(t, sim.probes, decimals+1)
	}
}

func TestRatioExhaustionForgetsCachedPower(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 1, num: 1, den: 1}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)
	p := pool(3)

	_, err = r.LpPerSy(context.Background(), p)
	require.NoError(t, err)
	power, ok := r.CachedPower(p, planner.QuoteLpOutForSyIn)
	require.True(t, ok)
	assert.Equal(t, 3, power)

	// liquidity drains: the single smallest probe fails too
	sim.maxProbe = 0
	sim.probes = nil
	ratio, err := r.LpPerSy(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ratio.Resolved())
	assert.Equal(t, []uint64{1}, sim.probes)
	_, ok = r.CachedPower(p, planner.QuoteLpOutForSyIn)
	assert.False(t, ok)

	// liquidity recovers: probing restarts from the full unit
	sim.maxProbe = 1000
	sim.probes = nil
	ratio, err = r.LpPerSy(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "1", ratio.Value)
	assert.Equal(t, []uint64{1000}, sim.probes)
}

func TestRatioTransportFailuresAreRetried(t *testing.T) {
	sim := &fakeSimulator{failWith: errors.New("connection reset")}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	ratio, err := r.SyPerPt(context.Background(), pool(2))
	require.NoError(t, err)
	assert.False(t, ratio.Resolved())
	assert.Len(t, sim.probes, 3)
}

func TestRatioAppliesConversionRate(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 1_000_000, num: 11, den: 10}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	ratio, err := r.Ratio(context.Background(), pool(6), planner.QuoteSyOutForPtIn, sdkmath.LegacyMustNewDecFromStr("1.1"))
	require.NoError(t, err)
	assert.Equal(t, "1", ratio.Value)
	assert.Equal(t, 0, ratio.Power)
}

func TestRatioReturnsBuildErrors(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 10, num: 1, den: 1}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	p := pool(3)
	p.Oracle.PackageID = ""
	_, err = r.PtPerSy(context.Background(), p)
	require.ErrorIs(t, err, types.ErrConfiguration)
	assert.Empty(t, sim.probes)
}

func TestRatioStopsOnCancellation(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 0, num: 1, den: 1}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.PtPerSy(ctx, pool(9))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sim.probes, 1)
}

func TestAllResolvesEveryKind(t *testing.T) {
	sim := &fakeSimulator{maxProbe: 1_000_000_000, num: 1, den: 2}
	r, err := NewResolver(sim, "0x0", 16)
	require.NoError(t, err)

	ratios, err := r.All(context.Background(), pool(9))
	require.NoError(t, err)
	require.Len(t, ratios, 3)
	for _, kind := range planner.QuoteKinds() {
		assert.Equal(t, "0.5", ratios[kind].Value)
	}
}
