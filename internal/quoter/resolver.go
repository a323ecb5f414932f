/*

This file contains the ratio resolver. A ratio is measured by simulating a
small quote; against thin liquidity a probe can revert, so the probe shrinks
by a factor of ten per failure until one succeeds or the smallest unit has
been tried. The power that last worked is remembered per market and quote.

*/

package quoter

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/observability"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/elys-network/yieldsplit/internal/simulations"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

var resolverLogger = logger.GetForComponent("ratio_resolver")

// Ratio is the outcome of one resolution. Value is empty when every probe
// failed.
type Ratio struct {
	Kind     planner.QuoteKind `json:"kind"`
	Value    string            `json:"value"`
	Probe    sdkmath.Int       `json:"probe"`
	Power    int               `json:"power"`
	Attempts int               `json:"attempts"`
	Debug    *types.DebugInfo  `json:"-"`
}

// Resolved reports whether a probe succeeded.
func (r Ratio) Resolved() bool { return r.Value != "" }

// Dec returns the ratio as a decimal, zero when unresolved.
func (r Ratio) Dec() sdkmath.LegacyDec {
	return utils.ParseDecOrZero(r.Value)
}

// Resolver measures exchange ratios by simulation.
type Resolver struct {
	sim     simulations.Simulator
	sender  string
	powers  *lru.Cache[string, int]
	metrics *observability.EngineMetrics
}

// NewResolver returns a resolver simulating as sender and remembering the
// probe power of up to cacheSize market/quote pairs.
func NewResolver(sim simulations.Simulator, sender string, cacheSize int) (*Resolver, error) {
	powers, err := lru.New[string, int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe power cache: %w", err)
	}
	return &Resolver{sim: sim, sender: sender, powers: powers, metrics: observability.Engine()}, nil
}

func powerKey(pool types.PoolConfig, kind planner.QuoteKind) string {
	return pool.MarketStateID + "|" + string(kind)
}

// CachedPower returns the remembered probe power for pool and kind.
func (r *Resolver) CachedPower(pool types.PoolConfig, kind planner.QuoteKind) (int, bool) {
	return r.powers.Get(powerKey(pool, kind))
}

// Ratio resolves output per input for a quote of kind. The probe starts at
// 10^(decimals - power) with power taken from the cache (default 0) and the
// power grows after each failed simulation up to decimals, so at most
// decimals+1 simulations are made. Exhaustion yields an empty ratio and no
// error and forgets the cached power; plan build errors are returned as is. A positive conversionRate
// divides the ratio into underlying-asset terms.
func (r *Resolver) Ratio(ctx context.Context, pool types.PoolConfig, kind planner.QuoteKind, conversionRate sdkmath.LegacyDec) (Ratio, error) {
	decimals := pool.Decimals
	key := powerKey(pool, kind)

	power, hit := r.powers.Get(key)
	r.metrics.ObserveCache("probe_power", hit)
	if power < 0 || power > decimals {
		power = 0
	}

	result := Ratio{Kind: kind}
	for ; power <= decimals; power++ {
		probe := utils.Pow10(decimals - power)
		q, err := planner.BuildQuote(pool, kind, probe)
		if err != nil {
			return Ratio{}, err
		}

		result.Attempts++
		out, debug, err := r.probe(ctx, q)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Ratio{}, ctxErr
		}
		r.metrics.ObserveProbe(string(kind), err == nil)
		if err != nil {
			resolverLogger.Debug().
				Err(err).
				Str("pool", pool.ID).
				Str("kind", string(kind)).
				Int("power", power).
				Msg("Probe failed, reducing probe size")
			continue
		}

		ratio := utils.Ratio(out, probe)
		if !conversionRate.IsNil() && conversionRate.IsPositive() {
			ratio = ratio.Quo(conversionRate)
		}
		r.powers.Add(key, power)

		result.Value = utils.FormatDec(ratio)
		debug.DecodedOutput = result.Value
		result.Probe = probe
		result.Power = power
		result.Debug = debug
		return result, nil
	}

	// the next call starts again from the largest probe
	r.powers.Remove(key)
	resolverLogger.Warn().
		Str("pool", pool.ID).
		Str("kind", string(kind)).
		Int("attempts", result.Attempts).
		Msg("Every probe failed, ratio unavailable")
	return result, nil
}

// probe simulates q and decodes its output amount. A zero output counts as
// a failure since the probe was too small to register.
func (r *Resolver) probe(ctx context.Context, q planner.QuotePlan) (sdkmath.Int, *types.DebugInfo, error) {
	res, debug, err := simulations.Run(ctx, r.sim, r.sender, q.Plan)
	if err != nil {
		return sdkmath.Int{}, debug, err
	}
	v, err := simulations.ReturnValue(res, debug, q.Operation, 0)
	if err != nil {
		return sdkmath.Int{}, debug, err
	}
	out, err := simulations.DecodeAmount(v)
	if err != nil {
		return sdkmath.Int{}, debug, err
	}
	if out.IsZero() {
		return sdkmath.Int{}, debug, fmt.Errorf("probe of %s returned zero", q.Kind)
	}
	return out, debug, nil
}

// PtPerSy is the PT received per SY.
func (r *Resolver) PtPerSy(ctx context.Context, pool types.PoolConfig) (Ratio, error) {
	return r.Ratio(ctx, pool, planner.QuotePtOutForSyIn, sdkmath.LegacyDec{})
}

// SyPerPt is the SY received per PT.
func (r *Resolver) SyPerPt(ctx context.Context, pool types.PoolConfig) (Ratio, error) {
	return r.Ratio(ctx, pool, planner.QuoteSyOutForPtIn, sdkmath.LegacyDec{})
}

// LpPerSy is the LP minted per SY added single sided.
func (r *Resolver) LpPerSy(ctx context.Context, pool types.PoolConfig) (Ratio, error) {
	return r.Ratio(ctx, pool, planner.QuoteLpOutForSyIn, sdkmath.LegacyDec{})
}

// All resolves every quote kind concurrently.
func (r *Resolver) All(ctx context.Context, pool types.PoolConfig) (map[planner.QuoteKind]Ratio, error) {
	kinds := planner.QuoteKinds()
	ratios := make([]Ratio, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			ratio, err := r.Ratio(gctx, pool, kind, sdkmath.LegacyDec{})
			if err != nil {
				return err
			}
			ratios[i] = ratio
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[planner.QuoteKind]Ratio, len(kinds))
	for i, kind := range kinds {
		out[kind] = ratios[i]
	}
	return out, nil
}
