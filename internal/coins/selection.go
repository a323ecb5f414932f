/*

This file contains coin selection: given the user's spendable coin objects of
one type, it produces a single plan value holding exactly the requested amount.

*/

package coins

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

var selectionLogger = logger.GetForComponent("coin_selection")

var ErrInvalidAmount = errors.New("target amount must be positive")

// IsNative reports whether coinType is the ledger's gas asset.
func IsNative(coinType string) bool {
	return coinType == config.NativeCoinType
}

// SplitAmount emits the operations needed to obtain a coin of exactly amount
// and returns its handle. Balance is checked before anything is emitted, so a
// failed selection leaves the builder untouched.
//
// The native asset is always split from the gas coin. For other coin types the
// records are consumed in input order: the first record is split when it is
// larger than amount, used directly when equal, and otherwise records are
// accumulated and merged into the first until they cover amount.
func SplitAmount(b *plan.Builder, coinType string, records []types.CoinRecord, amount sdkmath.Int) (plan.Value, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return plan.Value{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	if IsNative(coinType) {
		split := b.SplitCoins(b.Gas(), amount)
		return split[0], nil
	}

	candidates := filterByType(coinType, records)
	total := types.TotalBalance(candidates)
	if total.LT(amount) {
		return plan.Value{}, errors.Join(types.ErrInsufficientBalance,
			fmt.Errorf("need %s of %s, have %s across %d coins", amount, coinType, total, len(candidates)))
	}

	first := candidates[0]
	switch {
	case first.Balance.GT(amount):
		return b.SplitCoins(b.Object(first.ID), amount)[0], nil
	case first.Balance.Equal(amount):
		return b.Object(first.ID), nil
	}

	primary := b.Object(first.ID)
	accumulated := first.Balance
	var sources []plan.Value
	for _, record := range candidates[1:] {
		if accumulated.GTE(amount) {
			break
		}
		sources = append(sources, b.Object(record.ID))
		accumulated = accumulated.Add(record.Balance)
	}
	b.MergeCoins(primary, sources...)

	selectionLogger.Debug().
		Str("coinType", coinType).
		Str("amount", amount.String()).
		Int("merged", len(sources)+1).
		Msg("Merged coins to cover target amount")

	return b.SplitCoins(primary, amount)[0], nil
}

// filterByType keeps records of coinType with a positive balance, preserving order.
func filterByType(coinType string, records []types.CoinRecord) []types.CoinRecord {
	out := make([]types.CoinRecord, 0, len(records))
	for _, r := range records {
		if r.CoinType != "" && r.CoinType != coinType {
			continue
		}
		if r.Balance.IsNil() || !r.Balance.IsPositive() {
			continue
		}
		out = append(out, r)
	}
	return out
}
