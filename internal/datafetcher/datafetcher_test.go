package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elys-network/yieldsplit/internal/testutil"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	params []any
}

// fakeCaller answers each method with its queued JSON results in order.
type fakeCaller struct {
	responses map[string][]string
	calls     []call
	err       error
}

func (f *fakeCaller) Call(_ context.Context, method string, params any, result any) error {
	p, _ := params.([]any)
	f.calls = append(f.calls, call{method: method, params: p})
	if f.err != nil {
		return f.err
	}
	queue := f.responses[method]
	if len(queue) == 0 {
		return errors.New("unexpected call to " + method)
	}
	f.responses[method] = queue[1:]
	return json.Unmarshal([]byte(queue[0]), result)
}

func TestCoinsFollowsCursor(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]string{
		"suix_getCoins": {
			`{"data":[{"coinType":"0x2::sui::SUI","coinObjectId":"0xa","balance":"30"},
			          {"coinType":"0x2::sui::SUI","coinObjectId":"0xb","balance":"50"}],
			  "nextCursor":"0xb","hasNextPage":true}`,
			`{"data":[{"coinType":"0x2::sui::SUI","coinObjectId":"0xc","balance":"10"}],
			  "nextCursor":null,"hasNextPage":false}`,
		},
	}}
	f := NewFetcher(caller)

	coins, err := f.Coins(context.Background(), testutil.Owner, testutil.SUI)
	require.NoError(t, err)
	require.Len(t, coins, 3)
	assert.Equal(t, []string{"0xa", "0xb", "0xc"}, []string{coins[0].ID, coins[1].ID, coins[2].ID})
	assert.Equal(t, "80", types.TotalBalance(coins[:2]).String())

	require.Len(t, caller.calls, 2)
	assert.Nil(t, caller.calls[0].params[2])
	assert.Equal(t, "0xb", *(caller.calls[1].params[2].(*string)))
}

func TestCoinsRejectsBadBalance(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]string{
		"suix_getCoins": {`{"data":[{"coinType":"0x2::sui::SUI","coinObjectId":"0xa","balance":"abc"}],"hasNextPage":false}`},
	}}
	_, err := NewFetcher(caller).Coins(context.Background(), testutil.Owner, testutil.SUI)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPositionsFiltersByMarketAndMaturity(t *testing.T) {
	pool := testutil.Pool(types.ProtocolHaedal)
	caller := &fakeCaller{responses: map[string][]string{
		"suix_getOwnedObjects": {`{"data":[
			{"data":{"objectId":"0xp1","content":{"dataType":"moveObject","fields":{
				"py_state_id":"0xpystate","expiry":"1798675200000","pt_balance":"30","yt_balance":"25"}}}},
			{"data":{"objectId":"0xp2","content":{"dataType":"moveObject","fields":{
				"py_state_id":"0xother","expiry":"1798675200000","pt_balance":"99","yt_balance":"99"}}}},
			{"data":{"objectId":"0xp3","content":{"dataType":"moveObject","fields":{
				"py_state_id":"0xpystate","expiry":"1","pt_balance":"99","yt_balance":"99"}}}},
			{"data":{"objectId":"0xp4","content":{"dataType":"moveObject","fields":{
				"py_state_id":{"id":"0xpystate"},"expiry":1798675200000,"pt_balance":50}}}},
			{"data":{"objectId":"0xbroken","content":{"dataType":"moveObject","fields":{"py_state_id":"0xpystate"}}}}
		],"hasNextPage":false}`},
	}}

	positions, err := NewFetcher(caller).Positions(context.Background(), testutil.Owner, pool, types.PositionPY)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "0xp1", positions[0].ID)
	assert.Equal(t, "25", positions[0].YtBalance.String())
	assert.Equal(t, "0xp4", positions[1].ID)
	assert.Equal(t, "50", positions[1].PtBalance.String())
	assert.True(t, positions[1].YtBalance.IsZero())

	query := caller.calls[0].params[1].(ownedObjectsQuery)
	assert.Equal(t, "0xpy::py_position::PyPosition", query.Filter["StructType"])
}

func TestLpPositionsUseMarketState(t *testing.T) {
	pool := testutil.Pool(types.ProtocolHaedal)
	caller := &fakeCaller{responses: map[string][]string{
		"suix_getOwnedObjects": {`{"data":[
			{"data":{"objectId":"0xlp","content":{"fields":{"market_state_id":"0xmarket","expiry":"1798675200000","lp_amount":"7"}}}}
		],"hasNextPage":false}`},
	}}
	positions, err := NewFetcher(caller).Positions(context.Background(), testutil.Owner, pool, types.PositionLP)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, types.PositionLP, positions[0].Kind)
	assert.Equal(t, "7", positions[0].LpAmount.String())

	_, err = NewFetcher(caller).Positions(context.Background(), testutil.Owner, pool, "nft")
	require.ErrorIs(t, err, ErrUnknownPositionKind)
}

func TestMarketStateParsesRewards(t *testing.T) {
	pool := testutil.Pool(types.ProtocolHaedal)
	caller := &fakeCaller{responses: map[string][]string{
		"sui_getObject": {`{"data":{"objectId":"0xmarket","content":{"dataType":"moveObject","fields":{
			"total_sy":"1000","total_pt":"800","lp_supply":"900","market_cap":"5000",
			"rewarders":[
				{"type":"0xpy::market::Rewarder","fields":{"reward_token":{"type":"0x1::type_name::TypeName","fields":{"name":"0xr::a::A"}},
					"emission_per_second":"12","decimals":6,"active":true}},
				{"type":"0xpy::market::Rewarder","fields":{"reward_token":"0xr::b::B","emission_per_second":"0","decimals":"9","active":"false"}}
			]}}}}`},
	}}

	m, err := NewFetcher(caller).MarketState(context.Background(), pool)
	require.NoError(t, err)
	assert.Equal(t, "0xmarket", m.MarketStateID)
	assert.Equal(t, "1000", m.TotalSy.String())
	assert.Equal(t, "800", m.TotalPt.String())
	assert.Equal(t, "900", m.LpSupply.String())
	require.Len(t, m.Rewards, 2)
	assert.Equal(t, "0xr::a::A", m.Rewards[0].CoinType)
	assert.Equal(t, 6, m.Rewards[0].Decimals)
	assert.True(t, m.Rewards[0].Active)
	assert.False(t, m.Rewards[1].Active)
	assert.Equal(t, 9, m.Rewards[1].Decimals)
}

func TestMarketStateErrors(t *testing.T) {
	pool := testutil.Pool(types.ProtocolHaedal)

	caller := &fakeCaller{responses: map[string][]string{
		"sui_getObject": {`{"error":{"code":"notExists","object_id":"0xmarket"}}`},
	}}
	_, err := NewFetcher(caller).MarketState(context.Background(), pool)
	require.ErrorIs(t, err, ErrObjectNotFound)

	caller = &fakeCaller{responses: map[string][]string{
		"sui_getObject": {`{"data":{"objectId":"0xmarket","content":{"fields":{"total_sy":"1","total_pt":"1"}}}}`},
	}}
	_, err = NewFetcher(caller).MarketState(context.Background(), pool)
	require.ErrorIs(t, err, ErrMissingField)

	pool.MarketStateID = ""
	_, err = NewFetcher(caller).MarketState(context.Background(), pool)
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestAssetMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0x2::sui::SUI,0xr::a::A", r.URL.Query().Get("coinTypes"))
		_, _ = w.Write([]byte(`{"0x2::sui::SUI":{"price":"3.30","logo":"sui.png"},"0xr::a::A":{"price":0.5}}`))
	}))
	t.Cleanup(srv.Close)

	meta, err := NewPriceClient(srv.URL).AssetMetadata(context.Background(), []string{"0xr::a::A", testutil.SUI, "0xr::a::A"})
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, "3.3", meta[testutil.SUI].Price)
	assert.Equal(t, "sui.png", meta[testutil.SUI].Logo)
	assert.Equal(t, "0.5", meta["0xr::a::A"].Price)
}

func TestAssetMetadataRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"0x2::sui::SUI":{"price":"3"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewPriceClient(srv.URL)
	c.backoff = time.Millisecond
	meta, err := c.AssetMetadata(context.Background(), []string{testutil.SUI})
	require.NoError(t, err)
	assert.Equal(t, "3", meta[testutil.SUI].Price)
	assert.EqualValues(t, 3, hits.Load())
}

func TestAssetMetadataRejectsInvalidPrices(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"0x2::sui::SUI":{"price":"-1"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewPriceClient(srv.URL)
	c.backoff = time.Millisecond
	_, err := c.AssetMetadata(context.Background(), []string{testutil.SUI})
	require.ErrorIs(t, err, ErrInvalidPriceData)
	assert.EqualValues(t, 1, hits.Load())

	_, err = NewPriceClient("").AssetMetadata(context.Background(), []string{testutil.SUI})
	require.ErrorIs(t, err, ErrAPIConfiguration)
}
