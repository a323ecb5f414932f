/*

This file contains position merging. A user may own several PT/YT or LP
position objects for the same market; AMM entry points take one, so the
fragments are joined into the largest before it is spent.

*/

package positions

import (
	"errors"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

var mergeLogger = logger.GetForComponent("position_merge")

// MergeResult is the surviving position and what was folded into it.
type MergeResult struct {
	Position plan.Value
	Selected []string // ids in join order, survivor first
	Total    sdkmath.Int
}

// Merge joins the fewest positions, largest first, whose balance covers target.
func Merge(b *plan.Builder, pool types.PoolConfig, records []types.Position, balance types.BalanceSelector, target sdkmath.Int) (MergeResult, error) {
	sorted := sortDescending(records, balance)

	selected := make([]types.Position, 0, len(sorted))
	total := sdkmath.ZeroInt()
	for _, p := range sorted {
		if len(selected) > 0 && total.GTE(target) {
			break
		}
		selected = append(selected, p)
		total = total.Add(balance(p))
	}
	if len(selected) == 0 || total.LT(target) {
		return MergeResult{}, errors.Join(types.ErrInsufficientPosition,
			fmt.Errorf("need %s, have %s across %d positions", target, total, len(records)))
	}

	return join(b, pool, selected, total), nil
}

// MergeAll joins every position into the largest. It reports false when
// records is empty; the caller then opens a fresh position with InitPY.
func MergeAll(b *plan.Builder, pool types.PoolConfig, records []types.Position, balance types.BalanceSelector) (MergeResult, bool) {
	if len(records) == 0 {
		return MergeResult{}, false
	}
	sorted := sortDescending(records, balance)
	total := sdkmath.ZeroInt()
	for _, p := range sorted {
		total = total.Add(balance(p))
	}
	return join(b, pool, sorted, total), true
}

// InitPY opens an empty PT/YT position. The result must be transferred to the
// owner before the plan ends.
func InitPY(b *plan.Builder, pool types.PoolConfig) plan.Value {
	return b.Call(pool.Target("py", "init_py_position"), []string{pool.SyCoinType}, []plan.Arg{
		plan.Borrow("version", b.Object(pool.VersionID)),
		plan.Borrow("py_state", b.Object(pool.PyStateID)),
		plan.Borrow("clock", b.Object(pool.Clock())),
	}, plan.Output{Label: "py_position", Ephemeral: true})[0]
}

func join(b *plan.Builder, pool types.PoolConfig, selected []types.Position, total sdkmath.Int) MergeResult {
	first := selected[0]
	survivor := b.Object(first.ID)
	ids := []string{first.ID}

	target := pool.Target("py", "join_py_position")
	if first.Kind == types.PositionLP {
		target = pool.Target("market", "join_lp_position")
	}
	for _, p := range selected[1:] {
		b.Call(target, []string{pool.SyCoinType}, []plan.Arg{
			plan.Borrow("version", b.Object(pool.VersionID)),
			plan.Borrow("position", survivor),
			plan.Move("other", b.Object(p.ID)),
		})
		ids = append(ids, p.ID)
	}

	if len(ids) > 1 {
		mergeLogger.Debug().
			Str("pool", pool.ID).
			Strs("positions", ids).
			Str("total", total.String()).
			Msg("Joined position fragments")
	}
	return MergeResult{Position: survivor, Selected: ids, Total: total}
}

// sortDescending is stable so equal balances keep their input order.
func sortDescending(records []types.Position, balance types.BalanceSelector) []types.Position {
	sorted := append([]types.Position(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return balance(sorted[i]).GT(balance(sorted[j]))
	})
	return sorted
}
