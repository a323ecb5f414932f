/*

This file contains the pool configuration describing one maturity market and
the AMM reserve snapshot read from the ledger for it.

*/

package types

import (
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
)

// ProtocolTag identifies the protocol that mints a pool's yield-bearing token.
type ProtocolTag string

const (
	ProtocolScallop   ProtocolTag = "scallop"
	ProtocolAftermath ProtocolTag = "aftermath"
	ProtocolHaedal    ProtocolTag = "haedal"
	ProtocolVolo      ProtocolTag = "volo"
	ProtocolSpringSui ProtocolTag = "springsui"
	ProtocolAlphaFi   ProtocolTag = "alphafi"
	ProtocolWinter    ProtocolTag = "winter"
	ProtocolBucket    ProtocolTag = "bucket"
	ProtocolMstable   ProtocolTag = "mstable"
)

// OracleConfig holds the objects consumed when producing a price voucher.
type OracleConfig struct {
	PackageID           string            `json:"package_id" yaml:"package_id"`
	PriceOracleConfigID string            `json:"price_oracle_config_id" yaml:"price_oracle_config_id"`
	OracleTicketCapID   string            `json:"oracle_ticket_cap_id" yaml:"oracle_ticket_cap_id"`
	Objects             map[string]string `json:"objects,omitempty" yaml:"objects,omitempty"` // source-specific objects, e.g. "x_oracle"
}

// PoolConfig is the static and semi-static description of one maturity market.
type PoolConfig struct {
	ID                    string `json:"id" yaml:"id"` // e.g. "hasui-2025-12"
	PackageID             string `json:"package_id" yaml:"package_id"`
	VersionID             string `json:"version_id" yaml:"version_id"`
	ClockID               string `json:"clock_id,omitempty" yaml:"clock_id,omitempty"`
	MarketStateID         string `json:"market_state_id" yaml:"market_state_id"`
	PyStateID             string `json:"py_state_id" yaml:"py_state_id"`
	MarketFactoryConfigID string `json:"market_factory_config_id" yaml:"market_factory_config_id"`
	YieldFactoryConfigID  string `json:"yield_factory_config_id" yaml:"yield_factory_config_id"`
	SyStateID             string `json:"sy_state_id" yaml:"sy_state_id"`

	Protocol          ProtocolTag       `json:"protocol" yaml:"protocol"`
	ProtocolPackageID string            `json:"protocol_package_id,omitempty" yaml:"protocol_package_id,omitempty"`
	ProtocolObjects   map[string]string `json:"protocol_objects,omitempty" yaml:"protocol_objects,omitempty"`

	Decimals           int    `json:"decimals" yaml:"decimals"`
	CoinType           string `json:"coin_type" yaml:"coin_type"`               // asset the user deposits, e.g. 0x2::sui::SUI
	YieldTokenType     string `json:"yield_token_type" yaml:"yield_token_type"` // e.g. ...::hasui::HASUI
	SyCoinType         string `json:"sy_coin_type" yaml:"sy_coin_type"`
	UnderlyingCoinType string `json:"underlying_coin_type" yaml:"underlying_coin_type"`
	MaturityMs         int64  `json:"maturity_ms" yaml:"maturity_ms"`

	Oracle OracleConfig `json:"oracle" yaml:"oracle"`

	// Observed inputs, refreshed by the pool registry on its polling interval.
	CoinPrice       string `json:"coin_price" yaml:"coin_price"`             // USD price of the yield token
	UnderlyingPrice string `json:"underlying_price" yaml:"underlying_price"` // USD price of the underlying asset
	UnderlyingApy   string `json:"underlying_apy" yaml:"underlying_apy"`     // fraction, 0.05 = 5%
	ConversionRate  string `json:"conversion_rate" yaml:"conversion_rate"`   // deposit-asset units per yield token
	SwapFeeForLp    string `json:"swap_fee_for_lp" yaml:"swap_fee_for_lp"`   // observed fee accrual in SY display units
}

// Clock returns the clock object id, defaulting to the system clock.
func (p PoolConfig) Clock() string {
	if p.ClockID == "" {
		return "0x6"
	}
	return p.ClockID
}

// Target renders a fully qualified entry point of the pool's package.
func (p PoolConfig) Target(module, function string) string {
	return fmt.Sprintf("%s::%s::%s", p.PackageID, module, function)
}

// ProtocolObject returns a named protocol object or a ConfigurationError.
func (p PoolConfig) ProtocolObject(name string) (string, error) {
	if id := p.ProtocolObjects[name]; id != "" {
		return id, nil
	}
	return "", MissingField(p.ID, "protocol_objects."+name)
}

// OracleObject returns a named oracle object or a ConfigurationError.
func (p PoolConfig) OracleObject(name string) (string, error) {
	if id := p.Oracle.Objects[name]; id != "" {
		return id, nil
	}
	return "", MissingField(p.ID, "oracle.objects."+name)
}

// IsNativeDeposit reports whether the deposit asset is already the yield token.
func (p PoolConfig) IsNativeDeposit() bool {
	return p.CoinType != "" && p.CoinType == p.YieldTokenType
}

// Validate checks that every field the planner depends on is present.
func (p PoolConfig) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"id", p.ID},
		{"package_id", p.PackageID},
		{"version_id", p.VersionID},
		{"market_state_id", p.MarketStateID},
		{"py_state_id", p.PyStateID},
		{"market_factory_config_id", p.MarketFactoryConfigID},
		{"yield_factory_config_id", p.YieldFactoryConfigID},
		{"sy_state_id", p.SyStateID},
		{"protocol", string(p.Protocol)},
		{"coin_type", p.CoinType},
		{"yield_token_type", p.YieldTokenType},
		{"sy_coin_type", p.SyCoinType},
		{"oracle.package_id", p.Oracle.PackageID},
		{"oracle.price_oracle_config_id", p.Oracle.PriceOracleConfigID},
		{"oracle.oracle_ticket_cap_id", p.Oracle.OracleTicketCapID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return MissingField(p.ID, r.field)
		}
	}
	if p.Decimals < 0 || p.Decimals > 18 {
		return &ConfigurationError{Pool: p.ID, Field: "decimals", Reason: fmt.Sprintf("must be between 0 and 18, got %d", p.Decimals)}
	}
	if p.MaturityMs <= 0 {
		return &ConfigurationError{Pool: p.ID, Field: "maturity_ms", Reason: "must be positive"}
	}
	return nil
}

// Maturity returns the maturity as a time.
func (p PoolConfig) Maturity() time.Time {
	return time.UnixMilli(p.MaturityMs)
}

// DaysToExpiry returns the fractional number of days until maturity (negative once expired).
func (p PoolConfig) DaysToExpiry(now time.Time) float64 {
	return p.Maturity().Sub(now).Hours() / 24
}

// IsExpired reports whether the market has matured.
func (p PoolConfig) IsExpired(now time.Time) bool {
	return !now.Before(p.Maturity())
}

// RewardDescriptor describes one reward emission stream of a market.
type RewardDescriptor struct {
	CoinType          string      `json:"coin_type"`
	EmissionPerSecond sdkmath.Int `json:"emission_per_second"` // base units of the reward token
	Decimals          int         `json:"decimals"`
	Active            bool        `json:"active"`
}

// MarketState is an AMM reserve snapshot. All amounts are base units.
type MarketState struct {
	MarketStateID string             `json:"market_state_id"`
	TotalSy       sdkmath.Int        `json:"total_sy"`
	TotalPt       sdkmath.Int        `json:"total_pt"`
	LpSupply      sdkmath.Int        `json:"lp_supply"`
	MarketCap     sdkmath.Int        `json:"market_cap"`
	Rewards       []RewardDescriptor `json:"rewards"`
}

// IsEmpty reports whether the market has no liquidity yet.
func (m MarketState) IsEmpty() bool {
	return m.LpSupply.IsNil() || m.LpSupply.IsZero()
}
