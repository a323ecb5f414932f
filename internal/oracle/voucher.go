/*

This file contains the price voucher dispatch. A voucher is an ephemeral price
attestation for the pool's yield token; the AMM entry points that need a
price take it by value, so it must be produced and consumed inside one plan.

Sources are matched on the yield token's coin type. Tokens with a protocol
feed or a vault exchange rate use it; everything else goes through the generic
price provider.

*/

package oracle

import (
	"fmt"
	"strings"

	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/types"
)

var voucherLogger = logger.GetForComponent("price_voucher")

// Source identifies where a voucher's price comes from.
type Source string

const (
	SourceHaedal    Source = "haedal"    // external feed
	SourceVolo      Source = "volo"      // external feed
	SourceAftermath Source = "aftermath" // external feed
	SourceSpringSui Source = "springsui" // external feed
	SourceScallop   Source = "scallop"   // external feed
	SourceBucket    Source = "bucket"    // vault-derived
	SourceMstable   Source = "mstable"   // vault-derived
	SourceGeneric   Source = "generic"   // on-chain price provider
)

// Voucher is the plan value holding the attestation and the op that produced it.
type Voucher struct {
	Value     plan.Value
	Operation int
	Source    Source
}

type source struct {
	module   string
	function string
	objects  []string // extra oracle objects besides config and ticket cap
}

// SourceFor matches a yield token coin type to its price source.
func SourceFor(coinType string) Source {
	switch {
	case strings.HasSuffix(coinType, "::hasui::HASUI"):
		return SourceHaedal
	case strings.HasSuffix(coinType, "::cert::CERT"):
		return SourceVolo
	case strings.HasSuffix(coinType, "::afsui::AFSUI"):
		return SourceAftermath
	case strings.HasSuffix(coinType, "::spring_sui::SPRING_SUI"):
		return SourceSpringSui
	case strings.HasSuffix(coinType, "::scallop_sui::SCALLOP_SUI"):
		return SourceScallop
	case strings.HasSuffix(coinType, "::sbuck::SBUCK"):
		return SourceBucket
	case strings.HasSuffix(coinType, "::msui::MSUI"):
		return SourceMstable
	default:
		return SourceGeneric
	}
}

func describe(s Source) source {
	switch s {
	case SourceHaedal:
		return source{module: "haedal", function: "get_price_voucher_from_hasui", objects: []string{"feed"}}
	case SourceVolo:
		return source{module: "volo", function: "get_price_voucher_from_cert", objects: []string{"feed"}}
	case SourceAftermath:
		return source{module: "aftermath", function: "get_price_voucher_from_afsui", objects: []string{"feed"}}
	case SourceSpringSui:
		return source{module: "spring", function: "get_price_voucher_from_spring", objects: []string{"feed"}}
	case SourceScallop:
		return source{module: "scallop", function: "get_price_voucher_from_scoin", objects: []string{"feed"}}
	case SourceBucket:
		return source{module: "buck", function: "get_price_voucher_from_vault", objects: []string{"vault"}}
	case SourceMstable:
		return source{module: "mstable", function: "get_price_voucher_from_vault", objects: []string{"vault"}}
	default:
		return source{module: "oracle", function: "get_price_voucher"}
	}
}

// PriceVoucher emits one operation producing a voucher for pool's yield token.
// Every configured object is checked before anything is emitted.
func PriceVoucher(b *plan.Builder, pool types.PoolConfig) (Voucher, error) {
	if pool.Oracle.PackageID == "" {
		return Voucher{}, types.MissingField(pool.ID, "oracle.package_id")
	}
	if pool.Oracle.PriceOracleConfigID == "" {
		return Voucher{}, types.MissingField(pool.ID, "oracle.price_oracle_config_id")
	}
	if pool.Oracle.OracleTicketCapID == "" {
		return Voucher{}, types.MissingField(pool.ID, "oracle.oracle_ticket_cap_id")
	}

	kind := SourceFor(pool.YieldTokenType)
	src := describe(kind)

	args := []plan.Arg{
		plan.Borrow("price_oracle_config", b.Object(pool.Oracle.PriceOracleConfigID)),
		plan.Borrow("oracle_ticket_cap", b.Object(pool.Oracle.OracleTicketCapID)),
	}
	for _, name := range src.objects {
		id, err := pool.OracleObject(name)
		if err != nil {
			return Voucher{}, err
		}
		args = append(args, plan.Borrow(name, b.Object(id)))
	}
	args = append(args, plan.Borrow("clock", b.Object(pool.Clock())))

	target := fmt.Sprintf("%s::%s::%s", pool.Oracle.PackageID, src.module, src.function)
	index := b.Len()
	out := b.Call(target, []string{pool.SyCoinType}, args, plan.Output{Label: "price_voucher", Ephemeral: true})

	voucherLogger.Trace().
		Str("pool", pool.ID).
		Str("source", string(kind)).
		Msg("Emitted price voucher")

	return Voucher{Value: out[0], Operation: index, Source: kind}, nil
}
