package planner

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

// QuoteKind names a read-only quote and the ratio it yields.
type QuoteKind string

const (
	QuotePtOutForSyIn QuoteKind = "pt_out_for_sy_in"
	QuoteSyOutForPtIn QuoteKind = "sy_out_for_pt_in"
	QuoteLpOutForSyIn QuoteKind = "lp_out_for_sy_in"
)

// QuoteKinds lists every supported quote.
func QuoteKinds() []QuoteKind {
	return []QuoteKind{QuotePtOutForSyIn, QuoteSyOutForPtIn, QuoteLpOutForSyIn}
}

// QuotePlan is a read-only plan whose answer is the first return value of
// operation Operation.
type QuotePlan struct {
	Kind      QuoteKind
	Plan      *plan.Plan
	Operation int
}

// BuildQuote builds the quote plan of kind for an input of amountIn base units.
func BuildQuote(pool types.PoolConfig, kind QuoteKind, amountIn sdkmath.Int) (QuotePlan, error) {
	var function, amountName string
	switch kind {
	case QuotePtOutForSyIn:
		function, amountName = "get_pt_out_for_exact_sy_in", "net_sy_in"
	case QuoteSyOutForPtIn:
		function, amountName = "get_sy_amount_out_for_exact_pt_in", "exact_pt_in"
	case QuoteLpOutForSyIn:
		function, amountName = "get_lp_out_for_single_sy_in", "net_sy_in"
	default:
		return QuotePlan{}, fmt.Errorf("%w: quote %q", ErrUnknownFlow, kind)
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return QuotePlan{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, amountIn)
	}

	f := newFlow(Inputs{Pool: pool})
	price, err := f.voucher()
	if err != nil {
		return QuotePlan{}, err
	}
	index := f.b.Len()
	f.b.Call(f.pool.Target("router", function), []string{f.pool.SyCoinType}, []plan.Arg{
		plan.Pure(amountName, amountIn),
		plan.Move("price_voucher", price),
		f.pyState(),
		f.marketFactory(),
		f.marketState(),
		f.clock(),
	}, plan.Output{Label: "amount_out"})

	p, err := f.b.Finalize()
	if err != nil {
		return QuotePlan{}, err
	}
	return QuotePlan{Kind: kind, Plan: p, Operation: index}, nil
}

// PtOutForSyIn quotes the PT received for amountSy of SY.
func PtOutForSyIn(pool types.PoolConfig, amountSy sdkmath.Int) (QuotePlan, error) {
	return BuildQuote(pool, QuotePtOutForSyIn, amountSy)
}

// SyOutForPtIn quotes the SY received for amountPt of PT.
func SyOutForPtIn(pool types.PoolConfig, amountPt sdkmath.Int) (QuotePlan, error) {
	return BuildQuote(pool, QuoteSyOutForPtIn, amountPt)
}

// LpOutForSyIn quotes the LP minted for amountSy of SY added single sided.
func LpOutForSyIn(pool types.PoolConfig, amountSy sdkmath.Int) (QuotePlan, error) {
	return BuildQuote(pool, QuoteLpOutForSyIn, amountSy)
}
