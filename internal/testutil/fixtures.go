// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/types"
)

const (
	SUI   = "0x2::sui::SUI"
	HASUI = "0xbde4::hasui::HASUI"
	Owner = "0xfeed"
)

// Pool returns a fully configured haSUI-style pool for protocol.
func Pool(protocol types.ProtocolTag) types.PoolConfig {
	return types.PoolConfig{
		ID:                    "hasui-2026-12",
		PackageID:             "0xpy",
		VersionID:             "0xversion",
		MarketStateID:         "0xmarket",
		PyStateID:             "0xpystate",
		MarketFactoryConfigID: "0xmarketfactory",
		YieldFactoryConfigID:  "0xyieldfactory",
		SyStateID:             "0xsystate",
		Protocol:              protocol,
		ProtocolPackageID:     "0xprotocol",
		ProtocolObjects: map[string]string{
			"version":             "0xp_version",
			"market":              "0xp_market",
			"treasury":            "0xp_treasury",
			"staked_sui_vault":    "0xp_vault",
			"safe":                "0xp_safe",
			"referral_vault":      "0xp_referral",
			"validator":           "0xp_validator",
			"staking":             "0xp_staking",
			"native_pool":         "0xp_native_pool",
			"metadata":            "0xp_metadata",
			"liquid_staking_info": "0xp_lst",
			"vault":               "0xp_vault",
			"share_cap":           "0xp_share_cap",
		},
		Decimals:           9,
		CoinType:           SUI,
		YieldTokenType:     HASUI,
		SyCoinType:         "0xpy::sy::SY<" + HASUI + ">",
		UnderlyingCoinType: SUI,
		MaturityMs:         1_798_675_200_000, // 2027-01-01
		Oracle: types.OracleConfig{
			PackageID:           "0xoracle",
			PriceOracleConfigID: "0xprice_config",
			OracleTicketCapID:   "0xticket_cap",
			Objects: map[string]string{
				"feed":       "0xfeed_object",
				"vault":      "0xoracle_vault",
				"aggregator": "0xaggregator",
			},
		},
		CoinPrice:       "3.3",
		UnderlyingPrice: "3.0",
		UnderlyingApy:   "0.05",
		ConversionRate:  "1.1",
		SwapFeeForLp:    "0",
	}
}

// Records builds coin records of coinType with the given balances.
func Records(coinType string, balances ...int64) []types.CoinRecord {
	out := make([]types.CoinRecord, len(balances))
	for i, b := range balances {
		out[i] = types.CoinRecord{ID: fmt.Sprintf("0xcoin%d", i), CoinType: coinType, Balance: sdkmath.NewInt(b)}
	}
	return out
}

// Market returns a reserve snapshot with the given totals.
func Market(totalSy, totalPt, lpSupply int64) types.MarketState {
	return types.MarketState{
		MarketStateID: "0xmarket",
		TotalSy:       sdkmath.NewInt(totalSy),
		TotalPt:       sdkmath.NewInt(totalPt),
		LpSupply:      sdkmath.NewInt(lpSupply),
		MarketCap:     sdkmath.NewInt(0),
	}
}
