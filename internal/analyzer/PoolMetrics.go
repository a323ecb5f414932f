/*

This file contains the metrics engine: it gathers the inputs of one market
(reserves, PT price probe, reward prices), applies the formulas and keeps the
result for a short time per market.

*/

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/observability"
	"github.com/elys-network/yieldsplit/internal/quoter"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
	"github.com/puzpuzpuz/xsync/v4"
)

var metricsLogger = logger.GetForComponent("pool_metrics")

var ErrInvalidMarket = errors.New("market state does not match pool")

// RatioSource measures the SY received per PT.
type RatioSource interface {
	SyPerPt(ctx context.Context, pool types.PoolConfig) (quoter.Ratio, error)
}

// PriceSource returns asset metadata keyed by coin type.
type PriceSource interface {
	AssetMetadata(ctx context.Context, coinTypes []string) (map[string]types.AssetMetadata, error)
}

type cachedMetrics struct {
	Metrics types.PoolMetrics
	Fetched time.Time
}

// MetricsEngine computes pool metrics with a per-market TTL cache. The cache
// is read-checked then written without a lock; concurrent misses compute the
// same value twice and the last write wins.
type MetricsEngine struct {
	ratios       RatioSource
	prices       PriceSource
	cache        *xsync.Map[string, cachedMetrics]
	ttl          time.Duration
	feeRetention float64
	now          func() time.Time
	workers      pond.Pool
	metrics      *observability.EngineMetrics
}

// Option customises a MetricsEngine.
type Option func(*MetricsEngine)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *MetricsEngine) { e.now = now }
}

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(e *MetricsEngine) { e.ttl = ttl }
}

// NewMetricsEngine returns an engine using the configured TTL, fee retention
// and worker count.
func NewMetricsEngine(ratios RatioSource, prices PriceSource, opts ...Option) *MetricsEngine {
	e := &MetricsEngine{
		ratios:       ratios,
		prices:       prices,
		cache:        xsync.NewMap[string, cachedMetrics](),
		ttl:          config.MetricsTTL,
		feeRetention: config.YieldFeeRetention,
		now:          time.Now,
		workers:      pond.NewPool(config.MetricsWorkers),
		metrics:      observability.Engine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stop releases the worker pool.
func (e *MetricsEngine) Stop() {
	e.workers.StopAndWait()
}

// Invalidate drops the cached metrics of a market.
func (e *MetricsEngine) Invalidate(marketStateID string) {
	e.cache.Delete(marketStateID)
}

// Metrics returns the metrics of pool given its current reserves.
func (e *MetricsEngine) Metrics(ctx context.Context, pool types.PoolConfig, market types.MarketState) (types.PoolMetrics, error) {
	if market.MarketStateID != "" && market.MarketStateID != pool.MarketStateID {
		return types.PoolMetrics{}, fmt.Errorf("%w: %s vs %s", ErrInvalidMarket, market.MarketStateID, pool.MarketStateID)
	}
	key := pool.MarketStateID
	now := e.now()

	if cached, ok := e.cache.Load(key); ok && now.Sub(cached.Fetched) < e.ttl {
		e.metrics.ObserveCache("pool_metrics", true)
		return cached.Metrics, nil
	}
	e.metrics.ObserveCache("pool_metrics", false)

	if market.IsEmpty() {
		return types.ZeroMetrics(key, now), nil
	}

	m, complete, err := e.compute(ctx, pool, market, now)
	if err != nil {
		return types.PoolMetrics{}, err
	}
	if complete {
		e.cache.Store(key, cachedMetrics{Metrics: m, Fetched: now})
	}
	return m, nil
}

// compute reports complete=false when the PT price could not be probed; such
// results are returned but not cached.
func (e *MetricsEngine) compute(ctx context.Context, pool types.PoolConfig, market types.MarketState, now time.Time) (types.PoolMetrics, bool, error) {
	ratio, err := e.ratios.SyPerPt(ctx, pool)
	if err != nil {
		return types.PoolMetrics{}, false, err
	}
	complete := ratio.Resolved()
	if !complete {
		metricsLogger.Warn().Str("pool", pool.ID).Msg("PT price probe failed, metrics computed without PT price")
	}

	coinPrice := utils.ParseFloatOrZero(pool.CoinPrice)
	underlyingPrice := utils.ParseFloatOrZero(pool.UnderlyingPrice)
	underlyingApy := utils.ParseFloatOrZero(pool.UnderlyingApy)
	feeRate := utils.ParseFloatOrZero(pool.SwapFeeForLp)

	totalSy, err := utils.SDKIntToFloat64(market.TotalSy, pool.Decimals)
	if err != nil {
		return types.PoolMetrics{}, false, fmt.Errorf("invalid total SY: %w", err)
	}
	totalPt, err := utils.SDKIntToFloat64(market.TotalPt, pool.Decimals)
	if err != nil {
		return types.PoolMetrics{}, false, fmt.Errorf("invalid total PT: %w", err)
	}

	syPerPt, _ := utils.DecToFloat64(ratio.Dec())
	ptPrice := CalculatePtPrice(syPerPt, coinPrice)
	ytPriceInAsset := CalculateYtPriceInAsset(ptPrice, underlyingPrice)
	if ptPrice == 0 {
		ytPriceInAsset = 0
	}
	tvl := CalculateTvl(totalSy, totalPt, coinPrice, ptPrice)

	days := pool.DaysToExpiry(now)
	years := days / daysPerYear

	rewardPrices, err := e.rewardPrices(ctx, market.Rewards)
	if err != nil {
		return types.PoolMetrics{}, false, err
	}

	ptApy := CalculatePtApy(underlyingPrice, ptPrice, days)
	scaledUnderlying, scaledPt := CalculateScaledApys(totalSy, totalPt, underlyingApy, utils.ParseFloatOrZero(ptApy))
	incentiveApy := CalculateIncentiveApy(market.Rewards, rewardPrices, config.SecondsPerYear, tvl)
	swapFeeApy := CalculateSwapFeeApy(feeRate, coinPrice, tvl, days)

	m := types.PoolMetrics{
		MarketStateID:       pool.MarketStateID,
		PtPrice:             utils.FormatFloat(ptPrice),
		YtPrice:             utils.FormatFloat(ytPriceInAsset * underlyingPrice),
		PtApy:               ptApy,
		YtApy:               CalculateYtApy(underlyingApy, years, e.feeRetention, ytPriceInAsset),
		Tvl:                 utils.FormatFloat(tvl),
		ScaledUnderlyingApy: scaledUnderlying,
		ScaledPtApy:         scaledPt,
		IncentiveApy:        incentiveApy,
		SwapFeeApy:          swapFeeApy,
		PoolApy:             CalculatePoolApy(scaledUnderlying, scaledPt, incentiveApy, swapFeeApy),
		ComputedAt:          now,
	}

	metricsLogger.Debug().
		Str("pool", pool.ID).
		Str("ptPrice", m.PtPrice).
		Str("tvl", m.Tvl).
		Str("poolApy", m.PoolApy).
		Msg("Computed pool metrics")

	return m, complete, nil
}

func (e *MetricsEngine) rewardPrices(ctx context.Context, rewards []types.RewardDescriptor) (map[string]float64, error) {
	var coinTypes []string
	for _, r := range rewards {
		if r.Active {
			coinTypes = append(coinTypes, r.CoinType)
		}
	}
	prices := make(map[string]float64, len(coinTypes))
	if len(coinTypes) == 0 || e.prices == nil {
		return prices, nil
	}
	meta, err := e.prices.AssetMetadata(ctx, coinTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reward prices: %w", err)
	}
	for coinType, m := range meta {
		prices[coinType] = utils.ParseFloatOrZero(m.Price)
	}
	return prices, nil
}

// MarketInput pairs a pool with its reserves for batch computation.
type MarketInput struct {
	Pool   types.PoolConfig
	Market types.MarketState
}

// MetricsResult is the outcome for one pool of a batch.
type MetricsResult struct {
	PoolID  string
	Metrics types.PoolMetrics
	Err     error
}

// BatchMetrics computes metrics for several pools on the engine's worker
// pool. Results keep input order; a failed pool does not stop the others.
func (e *MetricsEngine) BatchMetrics(ctx context.Context, inputs []MarketInput) []MetricsResult {
	results := make([]MetricsResult, len(inputs))
	var mu sync.Mutex

	group := e.workers.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, in := range inputs {
		group.Submit(func() {
			m, err := e.Metrics(groupCtx, in.Pool, in.Market)
			mu.Lock()
			results[i] = MetricsResult{PoolID: in.Pool.ID, Metrics: m, Err: err}
			mu.Unlock()
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		metricsLogger.Warn().Err(err).Msg("Batch metrics group encountered error")
	}

	for i := range results {
		if results[i].PoolID == "" {
			err := context.Cause(ctx)
			if err == nil {
				err = pond.ErrGroupStopped
			}
			results[i] = MetricsResult{PoolID: inputs[i].Pool.ID, Err: err}
		}
	}
	return results
}
