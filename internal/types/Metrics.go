/*

This file contains the derived market metrics returned to callers. All values
are decimal strings; APY fields are percentages (already multiplied by 100)
except SwapFeeApy, which is a fraction.

*/

package types

import "time"

type PoolMetrics struct {
	MarketStateID       string    `json:"market_state_id"`
	PtPrice             string    `json:"pt_price"`
	YtPrice             string    `json:"yt_price"`
	PtApy               string    `json:"pt_apy"`
	YtApy               string    `json:"yt_apy"`
	Tvl                 string    `json:"tvl"`
	ScaledUnderlyingApy string    `json:"scaled_underlying_apy"`
	ScaledPtApy         string    `json:"scaled_pt_apy"`
	IncentiveApy        string    `json:"incentive_apy"`
	SwapFeeApy          string    `json:"swap_fee_apy"`
	PoolApy             string    `json:"pool_apy"`
	ComputedAt          time.Time `json:"computed_at"`
}

// ZeroMetrics is returned for markets without liquidity.
func ZeroMetrics(marketStateID string, at time.Time) PoolMetrics {
	return PoolMetrics{
		MarketStateID:       marketStateID,
		PtPrice:             "0",
		YtPrice:             "0",
		PtApy:               "0",
		YtApy:               "0",
		Tvl:                 "0",
		ScaledUnderlyingApy: "0",
		ScaledPtApy:         "0",
		IncentiveApy:        "0",
		SwapFeeApy:          "0",
		PoolApy:             "0",
		ComputedAt:          at,
	}
}
