package datafetcher

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/types"
)

type coinPage struct {
	Data []struct {
		CoinType     string `json:"coinType"`
		CoinObjectID string `json:"coinObjectId"`
		Balance      string `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// Coins returns every coin object of coinType owned by owner, in the order
// the node lists them.
func (f *Fetcher) Coins(ctx context.Context, owner, coinType string) ([]types.CoinRecord, error) {
	if owner == "" {
		return nil, errors.New("owner cannot be empty")
	}
	if coinType == "" {
		return nil, errors.New("coin type cannot be empty")
	}

	var (
		records []types.CoinRecord
		cursor  *string
		pages   int
	)
	for {
		var page coinPage
		if err := f.caller.Call(ctx, "suix_getCoins", []any{owner, coinType, cursor, pageLimit}, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch coins of %s: %w", coinType, err)
		}
		pages++

		for _, c := range page.Data {
			balance, ok := sdkmath.NewIntFromString(c.Balance)
			if !ok || balance.IsNegative() {
				return nil, fmt.Errorf("%w: coin %s has balance %q", ErrInvalidResponse, c.CoinObjectID, c.Balance)
			}
			records = append(records, types.CoinRecord{ID: c.CoinObjectID, CoinType: c.CoinType, Balance: balance})
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	fetchLogger.Debug().
		Str("owner", owner).
		Str("coinType", coinType).
		Int("coins", len(records)).
		Int("pages", pages).
		Msg("Fetched coins")
	return records, nil
}
