package adapters

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

// Well-known shared objects.
const (
	systemStateID = "0x5"
	zeroAddress   = "0x0"
)

// strategy describes how one protocol mints its yield-bearing token.
type strategy struct {
	objects []string    // protocol objects that must be configured
	minimum sdkmath.Int // nil when the protocol has no minimum deposit
	emit    func(e *emitter, deposit plan.Value) plan.Value
}

// strategyFor is the closed set of supported protocols.
func strategyFor(tag types.ProtocolTag) (strategy, error) {
	switch tag {
	case types.ProtocolScallop:
		return strategy{objects: []string{"version", "market", "treasury"}, emit: mintScallop}, nil
	case types.ProtocolAftermath:
		return strategy{
			objects: []string{"staked_sui_vault", "safe", "referral_vault", "validator"},
			minimum: config.AftermathMinimumDeposit,
			emit:    mintAftermath,
		}, nil
	case types.ProtocolHaedal:
		return strategy{objects: []string{"staking"}, emit: mintHaedal}, nil
	case types.ProtocolVolo:
		return strategy{objects: []string{"native_pool", "metadata"}, emit: mintVolo}, nil
	case types.ProtocolSpringSui:
		return strategy{objects: []string{"liquid_staking_info"}, emit: mintLiquidStaking}, nil
	case types.ProtocolAlphaFi:
		return strategy{objects: []string{"liquid_staking_info"}, emit: mintLiquidStaking}, nil
	case types.ProtocolWinter:
		return strategy{objects: []string{"staking"}, emit: mintWinter}, nil
	case types.ProtocolBucket:
		return strategy{objects: []string{"vault", "share_cap"}, emit: mintBucket}, nil
	case types.ProtocolMstable:
		return strategy{objects: []string{"vault", "version"}, emit: mintMstable}, nil
	default:
		return strategy{}, fmt.Errorf("%w: %q", types.ErrUnsupportedProtocol, tag)
	}
}

// Protocols lists every protocol with a mint strategy.
func Protocols() []types.ProtocolTag {
	return []types.ProtocolTag{
		types.ProtocolScallop, types.ProtocolAftermath, types.ProtocolHaedal,
		types.ProtocolVolo, types.ProtocolSpringSui, types.ProtocolAlphaFi,
		types.ProtocolWinter, types.ProtocolBucket, types.ProtocolMstable,
	}
}

// emitter writes calls against the pool's protocol package.
type emitter struct {
	b       *plan.Builder
	pool    types.PoolConfig
	objects map[string]string
}

func (e *emitter) object(name string) plan.Value {
	return e.b.Object(e.objects[name])
}

func (e *emitter) call(module, function string, typeParams []string, args []plan.Arg, label string) plan.Value {
	target := fmt.Sprintf("%s::%s::%s", e.pool.ProtocolPackageID, module, function)
	return e.b.Call(target, typeParams, args, plan.Output{Label: label, Ephemeral: true})[0]
}

func (e *emitter) clock() plan.Value { return e.b.Object(e.pool.Clock()) }

// Scallop: mint the market coin, then convert it into the sCoin.
func mintScallop(e *emitter, deposit plan.Value) plan.Value {
	marketCoin := e.call("mint", "mint", []string{e.pool.CoinType}, []plan.Arg{
		plan.Borrow("version", e.object("version")),
		plan.Borrow("market", e.object("market")),
		plan.Move("coin", deposit),
		plan.Borrow("clock", e.clock()),
	}, "market_coin")
	return e.call("s_coin_converter", "mint_s_coin", []string{e.pool.CoinType, e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("treasury", e.object("treasury")),
		plan.Move("market_coin", marketCoin),
	}, "yield_coin")
}

// Aftermath: request a stake through the staked SUI vault.
func mintAftermath(e *emitter, deposit plan.Value) plan.Value {
	return e.call("staked_sui_vault", "request_stake", nil, []plan.Arg{
		plan.Borrow("staked_sui_vault", e.object("staked_sui_vault")),
		plan.Borrow("safe", e.object("safe")),
		plan.Borrow("system_state", e.b.Object(systemStateID)),
		plan.Borrow("referral_vault", e.object("referral_vault")),
		plan.Move("coin", deposit),
		plan.Pure("validator", e.objects["validator"]),
	}, "yield_coin")
}

// Haedal: request a stake from the staking pool.
func mintHaedal(e *emitter, deposit plan.Value) plan.Value {
	return e.call("staking", "request_stake_coin", nil, []plan.Arg{
		plan.Borrow("system_state", e.b.Object(systemStateID)),
		plan.Borrow("staking", e.object("staking")),
		plan.Move("coin", deposit),
		plan.Pure("validator", zeroAddress),
	}, "yield_coin")
}

// Volo: stake into the native pool.
func mintVolo(e *emitter, deposit plan.Value) plan.Value {
	return e.call("native_pool", "stake_non_entry", nil, []plan.Arg{
		plan.Borrow("native_pool", e.object("native_pool")),
		plan.Borrow("metadata", e.object("metadata")),
		plan.Borrow("system_state", e.b.Object(systemStateID)),
		plan.Move("coin", deposit),
	}, "yield_coin")
}

// SpringSui and AlphaFi share the liquid staking interface; only the package differs.
func mintLiquidStaking(e *emitter, deposit plan.Value) plan.Value {
	return e.call("liquid_staking", "mint", []string{e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("liquid_staking_info", e.object("liquid_staking_info")),
		plan.Borrow("system_state", e.b.Object(systemStateID)),
		plan.Move("coin", deposit),
	}, "yield_coin")
}

// Winter: request a stake ticket, then redeem it for the staked coin.
func mintWinter(e *emitter, deposit plan.Value) plan.Value {
	ticket := e.call("stake", "request_stake", []string{e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("staking", e.object("staking")),
		plan.Move("coin", deposit),
		plan.Borrow("clock", e.clock()),
	}, "stake_ticket")
	return e.call("stake", "receive", []string{e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("staking", e.object("staking")),
		plan.Move("ticket", ticket),
	}, "yield_coin")
}

// Bucket: deposit into the savings vault, then mint the cap-gated share.
func mintBucket(e *emitter, deposit plan.Value) plan.Value {
	receipt := e.call("vault", "deposit", []string{e.pool.CoinType}, []plan.Arg{
		plan.Borrow("vault", e.object("vault")),
		plan.Move("coin", deposit),
		plan.Borrow("clock", e.clock()),
	}, "vault_receipt")
	return e.call("share", "mint_with_cap", []string{e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("share_cap", e.object("share_cap")),
		plan.Move("receipt", receipt),
	}, "yield_coin")
}

// mStable: deposit into the meta vault for shares.
func mintMstable(e *emitter, deposit plan.Value) plan.Value {
	return e.call("vault", "deposit", []string{e.pool.CoinType, e.pool.YieldTokenType}, []plan.Arg{
		plan.Borrow("vault", e.object("vault")),
		plan.Borrow("version", e.object("version")),
		plan.Move("coin", deposit),
		plan.Borrow("clock", e.clock()),
	}, "yield_coin")
}
