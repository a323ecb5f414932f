/*

This file contains the default parameters of the planning and pricing engine.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	// DefaultSimulationSender is the synthetic identity used for read-only quotes.
	DefaultSimulationSender = "0x0000000000000000000000000000000000000000000000000000000000000000"
	// DefaultSimulationMethod is the node method that dry-runs a serialized plan.
	DefaultSimulationMethod = "yieldsplit_simulatePlan"

	DefaultRPCRateLimit = 20.0
	DefaultRPCBurst     = 10

	// NativeCoinType is the ledger's gas asset; it is always split from the gas coin.
	NativeCoinType = "0x2::sui::SUI"
)

var (
	// MintLpThresholdPercent: deposits larger than this share of total SY take the mint-LP route.
	MintLpThresholdPercent = sdkmath.NewInt(40)

	// YieldFeeRetention is the share of accrued yield that reaches YT holders.
	YieldFeeRetention = 0.97

	// MetricsTTL is how long derived pool metrics stay cached.
	MetricsTTL = 60 * time.Second

	// ProbePowerCacheSize bounds the number of markets whose probe hint is remembered.
	ProbePowerCacheSize = 512

	// MetricsWorkers is the size of the worker pool used for batch metric computation.
	MetricsWorkers = 8

	// AftermathMinimumDeposit is the smallest stake the liquid staking vault accepts (1 SUI).
	AftermathMinimumDeposit = sdkmath.NewInt(1_000_000_000)

	// DefaultSlippageBps is the slippage floor applied to simulated outputs (0.5%).
	DefaultSlippageBps = int64(50)

	// PriceRefreshInterval is how often the pool registry refreshes observed prices.
	PriceRefreshInterval = 5 * time.Minute

	// SecondsPerYear is used to annualise reward emissions.
	SecondsPerYear = int64(31_536_000)
)
