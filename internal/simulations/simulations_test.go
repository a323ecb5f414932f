package simulations

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/rpc"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *plan.Plan {
	return &plan.Plan{Operations: []plan.Operation{{Target: "0xpy::router::get_pt_out_for_exact_sy_in", TypeParameters: []string{}}}}
}

func nodeServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "yieldsplit_simulatePlan", req.Method)
		if assert.Len(t, req.Params, 2) {
			assert.Equal(t, "0xsender", req.Params[0])
			raw, err := base64.StdEncoding.DecodeString(req.Params[1].(string))
			assert.NoError(t, err)
			p, err := plan.Unmarshal(raw)
			assert.NoError(t, err)
			assert.Equal(t, 1, p.Len())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSimulateDecodesReturnValuesAndEvents(t *testing.T) {
	srv := nodeServer(t, `{
		"results":[{"returnValues":[[[232,3,0,0,0,0,0,0],"u64"]]}],
		"events":[{"type":"0xpy::market::SwapEvent","parsedJson":{"amount_out":"1000"}}]
	}`)
	client := NewClient(rpc.NewClient(srv.URL, 0, 0), "")

	res, debug, err := Run(context.Background(), client, "0xsender", samplePlan())
	require.NoError(t, err)
	require.NotNil(t, debug)
	assert.NotEmpty(t, debug.RequestID)
	assert.Same(t, res, debug.Result)

	v, err := ReturnValue(res, debug, 0, 0)
	require.NoError(t, err)
	amount, err := DecodeAmount(v)
	require.NoError(t, err)
	assert.Equal(t, "1000", amount.String())

	fromEvent, err := EventAmount(res, debug, "::market::SwapEvent", "amount_out")
	require.NoError(t, err)
	assert.Equal(t, "1000", fromEvent.String())
}

func TestRunSurfacesContractError(t *testing.T) {
	srv := nodeServer(t, `{"error":"MoveAbort(market, 3) in swap","results":[],"events":[]}`)
	client := NewClient(rpc.NewClient(srv.URL, 0, 0), "")

	_, _, err := Run(context.Background(), client, "0xsender", samplePlan())
	require.ErrorIs(t, err, types.ErrContractError)

	var contractErr *types.ContractError
	require.ErrorAs(t, err, &contractErr)
	assert.Contains(t, contractErr.Message, "MoveAbort")
	require.NotNil(t, contractErr.Debug)
	assert.Equal(t, "0xsender", contractErr.Debug.Sender)
	assert.Equal(t, 1, contractErr.Debug.Plan.Len())
}

func TestSimulateRejectsMalformedValues(t *testing.T) {
	srv := nodeServer(t, `{"results":[{"returnValues":[[[256],"u8"]]}],"events":[]}`)
	client := NewClient(rpc.NewClient(srv.URL, 0, 0), "")

	_, err := client.Simulate(context.Background(), "0xsender", samplePlan())
	require.ErrorIs(t, err, ErrMalformedResult)
}

func TestRunWrapsMalformedResultWithDebug(t *testing.T) {
	srv := nodeServer(t, `{"results":[{"returnValues":[[[256],"u8"]]}],"events":[]}`)
	client := NewClient(rpc.NewClient(srv.URL, 0, 0), "")

	_, debug, err := Run(context.Background(), client, "0xsender", samplePlan())
	require.ErrorIs(t, err, ErrSimulationFailed)
	require.ErrorIs(t, err, ErrMalformedResult)

	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	require.NotNil(t, simErr.Debug)
	assert.Same(t, debug, simErr.Debug)
	assert.Equal(t, 1, simErr.Debug.Plan.Len())
	assert.Same(t, debug, DebugOf(err))
}

type failingSimulator struct{ err error }

func (f failingSimulator) Simulate(context.Context, string, *plan.Plan) (*types.SimulationResult, error) {
	return nil, f.err
}

func TestRunWrapsTransportFailureWithDebug(t *testing.T) {
	_, _, err := Run(context.Background(), failingSimulator{err: errors.Join(ErrSimulationFailed, errors.New("connection reset"))}, "0xsender", samplePlan())
	require.ErrorIs(t, err, ErrSimulationFailed)
	assert.Contains(t, err.Error(), "connection reset")

	debug := DebugOf(err)
	require.NotNil(t, debug)
	assert.Equal(t, "0xsender", debug.Sender)
	assert.NotEmpty(t, debug.RequestID)

	_, _, err = Run(context.Background(), failingSimulator{err: context.Canceled}, "0xsender", samplePlan())
	assert.ErrorIs(t, err, context.Canceled)

	assert.Nil(t, DebugOf(errors.New("plain")))
}

func TestMissingOutputs(t *testing.T) {
	res := &types.SimulationResult{Results: []types.OperationResult{{}}}

	_, err := ReturnValue(res, nil, 0, 0)
	require.ErrorIs(t, err, types.ErrMissingOutput)
	assert.Contains(t, err.Error(), "return value 0 of operation 0")

	_, err = ReturnValue(res, nil, 3, 0)
	require.ErrorIs(t, err, types.ErrMissingOutput)

	_, err = EventField(res, nil, "::market::SwapEvent", "amount_out")
	var missing *types.MissingOutputError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Expected, "amount_out")
}

func TestDecodeIntegers(t *testing.T) {
	u64, err := DecodeU64([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", u64.String())

	// 2^64 as u128 is one in fixed point
	one := make([]byte, 16)
	one[8] = 1
	u128, err := DecodeU128(one)
	require.NoError(t, err)
	display, err := FixedPointToDisplay(u128)
	require.NoError(t, err)
	assert.Equal(t, "1", display)

	_, err = DecodeU64([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = DecodeAmount(types.ReturnValue{Bytes: []byte{1}, Type: "bool"})
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestToDisplay(t *testing.T) {
	s, err := ToDisplay(sdkmath.NewInt(1_234_500_000), 9)
	require.NoError(t, err)
	assert.Equal(t, "1.2345", s)

	_, err = ToDisplay(sdkmath.NewInt(1), 40)
	require.Error(t, err)
}
