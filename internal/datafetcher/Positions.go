package datafetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/elys-network/yieldsplit/internal/types"
)

var ErrUnknownPositionKind = errors.New("unknown position kind")

// PositionStructType is the Move type of a position object of kind.
func PositionStructType(pool types.PoolConfig, kind types.PositionKind) (string, error) {
	switch kind {
	case types.PositionPY:
		return pool.PackageID + "::py_position::PyPosition", nil
	case types.PositionLP:
		return pool.PackageID + "::market_position::MarketPosition", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPositionKind, kind)
	}
}

type ownedObjectsQuery struct {
	Filter  map[string]string `json:"filter"`
	Options objectOptions     `json:"options"`
}

type ownedObjectsPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// Positions returns owner's positions of kind that belong to pool's market
// and maturity. Positions of other markets are skipped.
func (f *Fetcher) Positions(ctx context.Context, owner string, pool types.PoolConfig, kind types.PositionKind) ([]types.Position, error) {
	if owner == "" {
		return nil, errors.New("owner cannot be empty")
	}
	structType, err := PositionStructType(pool, kind)
	if err != nil {
		return nil, err
	}
	stateID := pool.PyStateID
	if kind == types.PositionLP {
		stateID = pool.MarketStateID
	}

	query := ownedObjectsQuery{
		Filter:  map[string]string{"StructType": structType},
		Options: contentOptions,
	}

	var (
		positions []types.Position
		cursor    *string
		skipped   int
	)
	for {
		var page ownedObjectsPage
		if err := f.caller.Call(ctx, "suix_getOwnedObjects", []any{owner, query, cursor, pageLimit}, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch %s positions: %w", kind, err)
		}

		for _, obj := range page.Data {
			if obj.Data == nil || obj.Data.Content == nil {
				continue
			}
			p, err := parsePosition(obj.Data, kind, owner)
			if err != nil {
				fetchLogger.Warn().Err(err).Str("object", obj.Data.ObjectID).Msg("Skipping unparseable position")
				skipped++
				continue
			}
			if p.StateID != stateID || p.MaturityMs != pool.MaturityMs {
				continue
			}
			positions = append(positions, p)
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	fetchLogger.Debug().
		Str("owner", owner).
		Str("pool", pool.ID).
		Str("kind", string(kind)).
		Int("positions", len(positions)).
		Int("skipped", skipped).
		Msg("Fetched positions")
	return positions, nil
}

func parsePosition(obj *objectData, kind types.PositionKind, owner string) (types.Position, error) {
	fields := obj.Content.Fields
	p := types.Position{ID: obj.ObjectID, Kind: kind, Owner: owner}

	var err error
	switch kind {
	case types.PositionPY:
		if p.StateID, err = stringField(fields, "py_state_id"); err != nil {
			return p, err
		}
		if p.PtBalance, err = intFieldOrZero(fields, "pt_balance"); err != nil {
			return p, err
		}
		if p.YtBalance, err = intFieldOrZero(fields, "yt_balance"); err != nil {
			return p, err
		}
	case types.PositionLP:
		if p.StateID, err = stringField(fields, "market_state_id"); err != nil {
			return p, err
		}
		if p.LpAmount, err = intFieldOrZero(fields, "lp_amount"); err != nil {
			return p, err
		}
	}
	if p.MaturityMs, err = int64Field(fields, "expiry"); err != nil {
		return p, err
	}
	if p.ID == "" {
		return p, fmt.Errorf("%w: object id", ErrMissingField)
	}
	return p, nil
}
