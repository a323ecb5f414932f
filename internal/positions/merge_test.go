package positions

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/testutil"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pyPosition(id string, pt int64) types.Position {
	return types.Position{ID: id, Kind: types.PositionPY, Owner: testutil.Owner, PtBalance: sdkmath.NewInt(pt)}
}

func TestMergeSelectsLargestUntilCovered(t *testing.T) {
	b := plan.NewBuilder()
	pool := testutil.Pool(types.ProtocolHaedal)
	records := []types.Position{pyPosition("A", 30), pyPosition("B", 50), pyPosition("C", 10)}

	res, err := Merge(b, pool, records, types.PtBalanceOf, sdkmath.NewInt(70))
	require.NoError(t, err)
	assert.Equal(t, "B", res.Position.ObjectID())
	assert.Equal(t, []string{"B", "A"}, res.Selected)
	assert.Equal(t, "80", res.Total.String())

	p, err := b.Finalize()
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	join := p.Operations[0]
	assert.Equal(t, "0xpy::py::join_py_position", join.Target)
	assert.Equal(t, "B", join.Arguments[1].ObjectID)
	assert.Equal(t, "A", join.Arguments[2].ObjectID)
	assert.True(t, join.Arguments[2].ByValue)
}

func TestMergeSingleRecordEmitsNothing(t *testing.T) {
	b := plan.NewBuilder()
	records := []types.Position{pyPosition("A", 30), pyPosition("B", 50)}

	res, err := Merge(b, testutil.Pool(types.ProtocolHaedal), records, types.PtBalanceOf, sdkmath.NewInt(50))
	require.NoError(t, err)
	assert.Equal(t, "B", res.Position.ObjectID())
	assert.Equal(t, 0, b.Len())
}

func TestMergeInsufficientPosition(t *testing.T) {
	b := plan.NewBuilder()
	records := []types.Position{pyPosition("A", 30), pyPosition("B", 50)}

	_, err := Merge(b, testutil.Pool(types.ProtocolHaedal), records, types.PtBalanceOf, sdkmath.NewInt(81))
	require.ErrorIs(t, err, types.ErrInsufficientPosition)
	assert.Equal(t, 0, b.Len())

	_, err = Merge(b, testutil.Pool(types.ProtocolHaedal), nil, types.PtBalanceOf, sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientPosition)
}

func TestMergeAllJoinsEveryLpFragment(t *testing.T) {
	b := plan.NewBuilder()
	records := []types.Position{
		{ID: "L1", Kind: types.PositionLP, LpAmount: sdkmath.NewInt(5)},
		{ID: "L2", Kind: types.PositionLP, LpAmount: sdkmath.NewInt(9)},
		{ID: "L3", Kind: types.PositionLP, LpAmount: sdkmath.NewInt(5)},
	}

	res, ok := MergeAll(b, testutil.Pool(types.ProtocolHaedal), records, types.LpAmountOf)
	require.True(t, ok)
	assert.Equal(t, []string{"L2", "L1", "L3"}, res.Selected)
	assert.Equal(t, "19", res.Total.String())

	p, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"0xpy::market::join_lp_position", "0xpy::market::join_lp_position"}, p.Targets())
}

func TestMergeAllEmptyAndInitPY(t *testing.T) {
	b := plan.NewBuilder()
	pool := testutil.Pool(types.ProtocolHaedal)

	_, ok := MergeAll(b, pool, nil, types.YtBalanceOf)
	require.False(t, ok)

	fresh := InitPY(b, pool)
	_, err := b.Finalize()
	require.ErrorIs(t, err, plan.ErrUnconsumedValue)

	b.TransferObjects(testutil.Owner, fresh)
	_, err = b.Finalize()
	require.NoError(t, err)
}
