/*
This file loads the pool registry: a YAML file listing every maturity market
the engine serves.

	pools:
	  - id: hasui-2026-12
	    package_id: 0x...
	    protocol: haedal
	    ...
*/

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownPool   = errors.New("unknown pool")
	ErrDuplicatePool = errors.New("duplicate pool id")
	ErrEmptyRegistry = errors.New("pool registry is empty")
)

type registryFile struct {
	Pools []types.PoolConfig `yaml:"pools"`
}

// PoolRegistry is the validated set of configured pools. The set of pools is
// fixed at load; their observed prices are refreshed in place.
type PoolRegistry struct {
	pools *xsync.Map[string, types.PoolConfig]
	order []string
}

// LoadPools reads and validates the registry at path.
func LoadPools(path string) (*PoolRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool registry %s: %w", path, err)
	}
	return ParsePools(data)
}

// ParsePools parses and validates a YAML registry document.
func ParsePools(data []byte) (*PoolRegistry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pool registry: %w", err)
	}
	return NewPoolRegistry(file.Pools)
}

// NewPoolRegistry validates pools and indexes them by id.
func NewPoolRegistry(pools []types.PoolConfig) (*PoolRegistry, error) {
	if len(pools) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &PoolRegistry{pools: xsync.NewMap[string, types.PoolConfig]()}
	var errs []error
	for i, p := range pools {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("pool %d: %w", i, err))
			continue
		}
		if _, loaded := r.pools.LoadOrStore(p.ID, p); loaded {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicatePool, p.ID))
			continue
		}
		r.order = append(r.order, p.ID)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.Strings(r.order)

	log.Info().Int("pools", len(r.order)).Msg("Pool registry loaded")
	return r, nil
}

// Get returns the pool with id.
func (r *PoolRegistry) Get(id string) (types.PoolConfig, error) {
	p, ok := r.pools.Load(id)
	if !ok {
		return types.PoolConfig{}, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	return p, nil
}

// List returns every pool ordered by id.
func (r *PoolRegistry) List() []types.PoolConfig {
	out := make([]types.PoolConfig, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.pools.Load(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// PriceLookup returns asset metadata keyed by coin type.
type PriceLookup interface {
	AssetMetadata(ctx context.Context, coinTypes []string) (map[string]types.AssetMetadata, error)
}

// RefreshPrices updates each pool's yield token and underlying prices from
// prices. Coin types the lookup does not know keep their previous price.
func (r *PoolRegistry) RefreshPrices(ctx context.Context, prices PriceLookup) error {
	pools := r.List()
	seen := make(map[string]struct{})
	var coinTypes []string
	for _, p := range pools {
		for _, ct := range []string{p.YieldTokenType, underlyingType(p)} {
			if _, ok := seen[ct]; ct != "" && !ok {
				seen[ct] = struct{}{}
				coinTypes = append(coinTypes, ct)
			}
		}
	}

	meta, err := prices.AssetMetadata(ctx, coinTypes)
	if err != nil {
		return fmt.Errorf("failed to refresh pool prices: %w", err)
	}

	updated := 0
	for _, p := range pools {
		changed := false
		if m, ok := meta[p.YieldTokenType]; ok && m.Price != "" {
			p.CoinPrice = m.Price
			changed = true
		}
		if m, ok := meta[underlyingType(p)]; ok && m.Price != "" {
			p.UnderlyingPrice = m.Price
			changed = true
		}
		if changed {
			r.pools.Store(p.ID, p)
			updated++
		}
	}
	log.Debug().Int("pools", updated).Int("coinTypes", len(coinTypes)).Msg("Pool prices refreshed")
	return nil
}

// underlyingType is the asset the yield token accrues in, defaulting to the deposit asset.
func underlyingType(p types.PoolConfig) string {
	if p.UnderlyingCoinType != "" {
		return p.UnderlyingCoinType
	}
	return p.CoinType
}
