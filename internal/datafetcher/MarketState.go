package datafetcher

import (
	"context"
	"fmt"

	"github.com/elys-network/yieldsplit/internal/types"
)

// MarketState reads the AMM reserves of pool's market object.
func (f *Fetcher) MarketState(ctx context.Context, pool types.PoolConfig) (types.MarketState, error) {
	if pool.MarketStateID == "" {
		return types.MarketState{}, types.MissingField(pool.ID, "market_state_id")
	}

	var resp objectResponse
	if err := f.caller.Call(ctx, "sui_getObject", []any{pool.MarketStateID, contentOptions}, &resp); err != nil {
		return types.MarketState{}, fmt.Errorf("failed to fetch market state %s: %w", pool.MarketStateID, err)
	}
	if resp.Error != nil {
		return types.MarketState{}, fmt.Errorf("%w: %s (%s)", ErrObjectNotFound, pool.MarketStateID, resp.Error.Code)
	}
	if resp.Data == nil || resp.Data.Content == nil {
		return types.MarketState{}, fmt.Errorf("%w: market state %s has no content", ErrInvalidObject, pool.MarketStateID)
	}

	m, err := parseMarketState(pool.MarketStateID, resp.Data.Content)
	if err != nil {
		fetchLogger.Error().Err(err).Str("pool", pool.ID).Msg("Failed to parse market state")
		return types.MarketState{}, err
	}

	fetchLogger.Debug().
		Str("pool", pool.ID).
		Str("totalSy", m.TotalSy.String()).
		Str("totalPt", m.TotalPt.String()).
		Str("lpSupply", m.LpSupply.String()).
		Int("rewards", len(m.Rewards)).
		Msg("Fetched market state")
	return m, nil
}

func parseMarketState(id string, content *objectContent) (types.MarketState, error) {
	fields := content.Fields
	m := types.MarketState{MarketStateID: id}

	var err error
	if m.TotalSy, err = intField(fields, "total_sy"); err != nil {
		return m, err
	}
	if m.TotalPt, err = intField(fields, "total_pt"); err != nil {
		return m, err
	}
	if m.LpSupply, err = intField(fields, "lp_supply"); err != nil {
		return m, err
	}
	if m.MarketCap, err = intFieldOrZero(fields, "market_cap"); err != nil {
		return m, err
	}

	rewards, err := structList(fields, "rewarders")
	if err != nil {
		return m, err
	}
	for i, r := range rewards {
		var d types.RewardDescriptor
		if d.CoinType, err = stringField(r, "reward_token"); err != nil {
			return m, fmt.Errorf("reward %d: %w", i, err)
		}
		if d.EmissionPerSecond, err = intField(r, "emission_per_second"); err != nil {
			return m, fmt.Errorf("reward %d: %w", i, err)
		}
		decimals, err := int64Field(r, "decimals")
		if err != nil {
			return m, fmt.Errorf("reward %d: %w", i, err)
		}
		d.Decimals = int(decimals)
		if d.Active, err = boolField(r, "active"); err != nil {
			return m, fmt.Errorf("reward %d: %w", i, err)
		}
		m.Rewards = append(m.Rewards, d)
	}
	return m, nil
}
