/*

This file contains the ledger-owned records the planner references: spendable
coin objects and PT/YT or LP position objects.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// CoinRecord is one spendable coin object.
type CoinRecord struct {
	ID       string      `json:"id"`
	CoinType string      `json:"coin_type"`
	Balance  sdkmath.Int `json:"balance"`
}

// TotalBalance sums the balances of records.
func TotalBalance(records []CoinRecord) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, r := range records {
		if !r.Balance.IsNil() {
			total = total.Add(r.Balance)
		}
	}
	return total
}

// PositionKind distinguishes PT/YT positions from LP positions.
type PositionKind string

const (
	PositionPY PositionKind = "py"
	PositionLP PositionKind = "lp"
)

// Position is a ledger-owned PT/YT or LP record. Multiple fragments may exist
// per owner and market and are merged before being spent.
type Position struct {
	ID         string       `json:"id"`
	Kind       PositionKind `json:"kind"`
	Owner      string       `json:"owner"`
	StateID    string       `json:"state_id"` // py state id for PY positions, market state id for LP positions
	MaturityMs int64        `json:"maturity_ms"`
	PtBalance  sdkmath.Int  `json:"pt_balance,omitempty"`
	YtBalance  sdkmath.Int  `json:"yt_balance,omitempty"`
	LpAmount   sdkmath.Int  `json:"lp_amount,omitempty"`
}

// BalanceSelector picks the balance a merge should cover.
type BalanceSelector func(Position) sdkmath.Int

func orZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}

// PtBalanceOf selects the PT balance.
func PtBalanceOf(p Position) sdkmath.Int { return orZero(p.PtBalance) }

// YtBalanceOf selects the YT balance.
func YtBalanceOf(p Position) sdkmath.Int { return orZero(p.YtBalance) }

// LpAmountOf selects the LP amount.
func LpAmountOf(p Position) sdkmath.Int { return orZero(p.LpAmount) }
